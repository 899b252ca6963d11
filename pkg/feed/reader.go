package feed

import "io"

// meteredReader counts the body bytes handed to the lexer and reports progress
// after every read. Reads are capped to chunk bytes so progress and cut-offs are
// observed at a fine grain.
type meteredReader struct {
	r        io.Reader
	chunk    int
	total    int64
	progress func(total int64)
}

func (m *meteredReader) Read(p []byte) (int, error) {
	if m.chunk > 0 && len(p) > m.chunk {
		p = p[:m.chunk]
	}

	n, err := m.r.Read(p)
	if n > 0 {
		m.total += int64(n)
		if m.progress != nil {
			m.progress(m.total)
		}
	}

	return n, err
}
