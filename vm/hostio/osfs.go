package hostio

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// OSHost is the default HostIO backed by the operating system's
// filesystem. Handles are *os.File values boxed as `any`.
type OSHost struct{}

// NewOSHost creates the default os-backed host collaborator.
func NewOSHost() *OSHost { return &OSHost{} }

// Open translates a SYS_OPEN mode character into unix open(2) flags the
// way saferwall-pe's file layer reaches for golang.org/x/sys/unix instead
// of the generic os.O_* constants when it needs precise control over the
// syscall-level flags (spec §4.7: 'r' read, 'w' write+trunc, 'a' append,
// 'b' read-binary).
func (h *OSHost) Open(path string, mode byte) (any, error) {
	var flags int
	switch mode {
	case 'r', 'b':
		flags = unix.O_RDONLY
	case 'w':
		flags = unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC
	case 'a':
		flags = unix.O_WRONLY | unix.O_CREAT | unix.O_APPEND
	default:
		return nil, os.ErrInvalid
	}
	fd, err := unix.Open(path, flags, 0644)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

// Read reads from the host file.
func (h *OSHost) Read(handle any, p []byte) (int, error) {
	f := handle.(*os.File)
	n, err := f.Read(p)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

// Write writes to the host file.
func (h *OSHost) Write(handle any, p []byte) (int, error) {
	f := handle.(*os.File)
	return f.Write(p)
}

// Close closes the host file. Standard-stream handles (stdin/stdout/
// stderr) are never passed to Close: the FD table never frees slots 0-2.
func (h *OSHost) Close(handle any) error {
	f := handle.(*os.File)
	return f.Close()
}
