package upload

import "io"

// progressReader reports bytesRead/total*100 after every read the blob store makes.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.total > 0 {
			p.report(float64(p.read) / float64(p.total) * 100)
		}
	}
	return n, err
}
