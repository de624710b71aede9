package vhdx

import (
	"io"
)

// LogSequence is a maximal run of contiguous, consecutively-numbered,
// same-log-GUID entries — the unit of replay (§3, §4.12).
type LogSequence struct {
	Anchor  uint64
	Head    int64
	Tail    int64
	Entries []LogEntry
}

// isValid reports whether this sequence contains at least one entry (§4.12).
func (s LogSequence) isValid() bool {
	return len(s.Entries) > 0
}

// scanLog walks the log region from logOffset to logOffset+logLength,
// decoding entries until a 4-byte peek fails to match "loge" (§4.11). A
// non-matching peek is normal termination, not an error: the log region is
// sparsely populated.
func scanLog(rs io.ReadSeeker, logOffset int64, logLength uint32) []LogEntry {
	var entries []LogEntry

	end := logOffset + int64(logLength)
	cursor := logOffset

	peekBuf := make([]byte, 4)

	for cursor < end {
		_, err := rs.Seek(cursor, io.SeekStart)
		if err != nil {
			panicWithError(ErrorKindIo, cursor, "seek to log cursor failed: %s", err)
		}

		n, err := io.ReadFull(rs, peekBuf)
		if err != nil || n < 4 {
			break
		}

		if newCodec(peekBuf, cursor).sig4(sig4Table) != SignatureLoge {
			break
		}

		entry := parseLogEntry(rs, cursor)
		entries = append(entries, entry)

		cursor += int64(entry.Header.EntryLength)
	}

	return entries
}

// selectLogSequence implements §4.12: find the maximal contiguous run of
// valid(logGUID) entries with strictly increasing, consecutive sequence
// numbers, and return the one with the highest anchor sequence number.
//
// If logGUID is the nil GUID, no replay occurs and an empty sequence is
// returned (not an error) — the container was never written to under log
// protection, or the log was already fully flushed and cleared.
func selectLogSequence(entries []LogEntry, logGUID GUID) LogSequence {
	var active LogSequence

	if logGUID == nilGUID {
		return active
	}

	cursor := 0

	for cursor < len(entries) {
		var candidate LogSequence

		for i := cursor; i < len(entries); i++ {
			e := entries[i]

			if e.valid(logGUID) == false {
				break
			}

			if len(candidate.Entries) == 0 {
				candidate.Anchor = e.Header.SequenceNumber
				candidate.Head = e.Offset
				candidate.Entries = []LogEntry{e}
			} else if e.Header.SequenceNumber == candidate.Entries[len(candidate.Entries)-1].Header.SequenceNumber+1 {
				candidate.Entries = append(candidate.Entries, e)
				candidate.Head = e.Offset
			} else {
				break
			}
		}

		if candidate.isValid() == false {
			break
		}

		candidate.Tail = candidate.Entries[len(candidate.Entries)-1].Offset + int64(candidate.Entries[len(candidate.Entries)-1].Header.EntryLength)

		if candidate.Anchor > active.Anchor {
			active = candidate
		}

		advance := len(candidate.Entries)
		if advance < 1 {
			advance = 1
		}

		cursor += advance
	}

	return active
}
