package sandbox

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"sync/atomic"

	"github.com/agentbox/agentbox-go/conf"
)

// multipartFileWriter 封装 multipart 文件上传的 writer。
type multipartFileWriter struct {
	w *multipart.Writer
}

// newMultipartWriter 创建一个写入到 w 的 multipartFileWriter。
func newMultipartWriter(w io.Writer) *multipartFileWriter {
	return &multipartFileWriter{w: multipart.NewWriter(w)}
}

// contentType 返回 multipart 的 Content-Type 头。
func (m *multipartFileWriter) contentType() string {
	return m.w.FormDataContentType()
}

// copyFile 把 r 的内容作为一个文件 part 写入 multipart body，不会整体读入内存。
func (m *multipartFileWriter) copyFile(fieldName, fileName string, r io.Reader) (int64, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldName, filepath.Base(fileName)))
	h.Set("Content-Type", conf.CONTENT_TYPE_OCTET)
	part, err := m.w.CreatePart(h)
	if err != nil {
		return 0, err
	}
	return io.Copy(part, r)
}

// close 关闭 multipart writer。
func (m *multipartFileWriter) close() error {
	return m.w.Close()
}

// progressReader 统计已读取的字节数并回调。
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.onProgress != nil {
		p.onProgress(atomic.AddInt64(&p.read, int64(n)), p.total)
	}
	return n, err
}
