package youtube

import "io"

// MaxTransferPercent is the highest progress reported for the byte transfer.
// The rest is left for YouTube's processing of the upload.
const MaxTransferPercent = 95

// ProgressFunc receives transfer progress in percent. Calls are strictly
// increasing and the last one is MaxTransferPercent once every byte was read.
type ProgressFunc func(percent int)

type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	last       int
	onProgress ProgressFunc
}

func newProgressReader(r io.Reader, total int64, onProgress ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, onProgress: onProgress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.sent += int64(n)
	p.report()
	return n, err
}

func (p *progressReader) report() {
	if p.onProgress == nil || p.total <= 0 {
		return
	}
	pct := int(min(p.sent, p.total) * MaxTransferPercent / p.total)
	if pct > p.last {
		p.last = pct
		p.onProgress(pct)
	}
}
