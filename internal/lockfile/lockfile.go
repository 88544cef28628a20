package lockfile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// PathFor 返回 path 对应的锁文件路径
func PathFor(path string) string {
	return path + ".lock"
}

// Lock 对 path 加文件锁，锁文件为 PathFor(path)。ex 为 true 时加排他锁，否则加共享锁。
func Lock(path string, ex bool, handleError func(error)) (context.CancelFunc, error) {
	var (
		lockFilePath = PathFor(path)
		lockFile     = flock.New(lockFilePath)
		err          error
	)
	if err = os.MkdirAll(filepath.Dir(lockFilePath), 0o755); err != nil {
		return nil, err
	}
	if ex {
		err = lockFile.Lock()
	} else {
		err = lockFile.RLock()
	}
	if err != nil {
		if handleError != nil {
			handleError(err)
		}
		return nil, err
	}
	return func() {
		if err := lockFile.Unlock(); err != nil && handleError != nil {
			handleError(err)
		}
	}, nil
}

// WriteFile 在排他锁内把 data 写入同目录下的临时文件，再重命名为 path，
// 读者不会看到写了一半的文件。
func WriteFile(path string, data []byte, perm os.FileMode) error {
	unlock, err := Lock(path, true, nil)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, perm)
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		os.Remove(tmpPath)
	}
	return err
}

// ReadFile 在共享锁内读取 path。
func ReadFile(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	unlock, err := Lock(path, false, nil)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return os.ReadFile(path)
}
