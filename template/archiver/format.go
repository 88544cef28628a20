package archiver

import (
	"archive/tar"
	"archive/zip"
	"io"
	"io/fs"
)

type entryWriter interface {
	WriteDir(name string, info fs.FileInfo) error
	WriteFile(name string, info fs.FileInfo) (io.Writer, error)
	WriteSymlink(name string, info fs.FileInfo, target string) error
	Close() error
}

type zipWriter struct {
	w *zip.Writer
}

func (z *zipWriter) WriteDir(name string, info fs.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name + "/"
	_, err = z.w.CreateHeader(header)
	return err
}

func (z *zipWriter) WriteFile(name string, info fs.FileInfo) (io.Writer, error) {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return nil, err
	}
	header.Name = name
	header.Method = zip.Deflate
	return z.w.CreateHeader(header)
}

func (z *zipWriter) WriteSymlink(name string, info fs.FileInfo, target string) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	w, err := z.w.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, target)
	return err
}

func (z *zipWriter) Close() error {
	return z.w.Close()
}

type tarWriter struct {
	w      *tar.Writer
	closed bool
}

func (t *tarWriter) WriteDir(name string, info fs.FileInfo) error {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name + "/"
	return t.w.WriteHeader(header)
}

func (t *tarWriter) WriteFile(name string, info fs.FileInfo) (io.Writer, error) {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return nil, err
	}
	header.Name = name
	if err := t.w.WriteHeader(header); err != nil {
		return nil, err
	}
	return t.w, nil
}

func (t *tarWriter) WriteSymlink(name string, info fs.FileInfo, target string) error {
	header, err := tar.FileInfoHeader(info, target)
	if err != nil {
		return err
	}
	header.Name = name
	return t.w.WriteHeader(header)
}

func (t *tarWriter) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.w.Close()
}
