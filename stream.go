package sheetdb

import "iter"

// RowStream yields query results one at a time. The query runs on the first
// call to Next; the stream cannot be restarted.
//
//	stream := db.StreamQuery(ctx, q)
//	defer stream.Close()
//	for stream.Next() {
//		use(stream.Record())
//	}
//	if err := stream.Err(); err != nil { ... }
type RowStream struct {
	run     func() ([]Record, error)
	rows    []Record
	pos     int
	current Record
	started bool
	closed  bool
	err     error
}

func newRowStream(run func() ([]Record, error)) *RowStream {
	return &RowStream{run: run}
}

// Next advances to the next record
func (s *RowStream) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	if !s.started {
		s.started = true
		s.rows, s.err = s.run()
		s.run = nil
		if s.err != nil {
			return false
		}
	}
	if s.pos >= len(s.rows) {
		s.current = nil
		s.rows = nil
		return false
	}
	s.current = s.rows[s.pos]
	s.rows[s.pos] = nil
	s.pos++
	return true
}

// Record returns the current record
func (s *RowStream) Record() Record { return s.current }

// Err returns the error that stopped the stream, if any
func (s *RowStream) Err() error { return s.err }

// Close drops the remaining records
func (s *RowStream) Close() error {
	s.closed = true
	s.rows = nil
	s.current = nil
	return nil
}

// All adapts the stream to a range-over-func loop. The error, if any, is
// yielded last with a nil record.
func (s *RowStream) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for s.Next() {
			if !yield(s.Record(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, err)
		}
	}
}
