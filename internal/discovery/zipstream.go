package discovery

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

const (
	sigLocalHeader = 0x04034b50
	sigCentralDir  = 0x02014b50
	sigEndOfDir    = 0x06054b50
	sigDescriptor  = 0x08074b50

	methodStore   = 0
	methodDeflate = 8

	flagDescriptor = 0x08
	flagEncrypted  = 0x01
)

var errZipChecksum = errors.New("discovery: zip entry checksum mismatch")

// zipStream walks the local file headers of a zip archive as it is read,
// without needing the central directory at the end.
type zipStream struct {
	br   *bufio.Reader
	cur  *zipEntry
	done bool
}

func newZipStream(br *bufio.Reader) *zipStream {
	return &zipStream{br: br}
}

// zipEntry is the body of one archive member. Reading it to EOF verifies
// its checksum.
type zipEntry struct {
	Name string

	z       *zipStream
	body    io.Reader
	closer  io.Closer
	limit   *io.LimitedReader
	crc     hash.Hash32
	want    uint32
	flags   uint16
	eof     bool
	checked bool
}

// isZip reports whether br starts with a local file header.
func isZip(br *bufio.Reader) bool {
	sig, err := br.Peek(4)
	return err == nil && binary.LittleEndian.Uint32(sig) == sigLocalHeader
}

// Next skips the rest of the current entry and returns the next one, or
// io.EOF when the central directory is reached.
func (z *zipStream) Next() (*zipEntry, error) {
	if z.done {
		return nil, io.EOF
	}
	if z.cur != nil {
		if _, err := io.Copy(io.Discard, z.cur); err != nil {
			z.done = true
			return nil, fmt.Errorf("skipping %s: %w", z.cur.Name, err)
		}
		z.cur = nil
	}

	var head [30]byte
	if _, err := io.ReadFull(z.br, head[:4]); err != nil {
		z.done = true
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading zip header: %w", err)
	}
	switch binary.LittleEndian.Uint32(head[:4]) {
	case sigLocalHeader:
	case sigCentralDir, sigEndOfDir:
		z.done = true
		return nil, io.EOF
	default:
		z.done = true
		return nil, errors.New("discovery: malformed zip stream")
	}
	if _, err := io.ReadFull(z.br, head[4:]); err != nil {
		z.done = true
		return nil, fmt.Errorf("reading zip header: %w", err)
	}

	flags := binary.LittleEndian.Uint16(head[6:])
	method := binary.LittleEndian.Uint16(head[8:])
	crc := binary.LittleEndian.Uint32(head[14:])
	compSize := int64(binary.LittleEndian.Uint32(head[18:]))
	nameLen := int(binary.LittleEndian.Uint16(head[26:]))
	extraLen := int(binary.LittleEndian.Uint16(head[28:]))

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(z.br, name); err != nil {
		z.done = true
		return nil, fmt.Errorf("reading zip entry name: %w", err)
	}
	if _, err := z.br.Discard(extraLen); err != nil {
		z.done = true
		return nil, fmt.Errorf("skipping zip extra field: %w", err)
	}

	e := &zipEntry{
		Name:  string(name),
		z:     z,
		crc:   crc32.NewIEEE(),
		want:  crc,
		flags: flags,
	}
	if flags&flagEncrypted != 0 {
		z.done = true
		return nil, fmt.Errorf("zip entry %s is encrypted", e.Name)
	}

	streamed := flags&flagDescriptor != 0
	switch method {
	case methodStore:
		if streamed {
			z.done = true
			return nil, fmt.Errorf("zip entry %s: stored entries need sizes in the local header", e.Name)
		}
		e.body = io.LimitReader(z.br, compSize)
	case methodDeflate:
		var src io.Reader = z.br
		if !streamed {
			e.limit = &io.LimitedReader{R: z.br, N: compSize}
			src = e.limit
		}
		// A *bufio.Reader is an io.ByteReader, so inflate stops exactly at
		// the end of the deflate stream.
		fr := flate.NewReader(src)
		e.body = fr
		e.closer = fr
	default:
		z.done = true
		return nil, fmt.Errorf("zip entry %s: unsupported method %d", e.Name, method)
	}

	z.cur = e
	return e, nil
}

func (e *zipEntry) Read(p []byte) (int, error) {
	if e.eof {
		return 0, io.EOF
	}
	n, err := e.body.Read(p)
	e.crc.Write(p[:n])
	if err == io.EOF {
		e.eof = true
		if cerr := e.finish(); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}

// finish reads the data descriptor if present and checks the CRC.
func (e *zipEntry) finish() error {
	if e.checked {
		return nil
	}
	e.checked = true
	if e.closer != nil {
		e.closer.Close()
	}
	if e.limit != nil {
		if _, err := io.Copy(io.Discard, e.limit); err != nil {
			e.z.done = true
			return err
		}
	}

	if e.flags&flagDescriptor != 0 {
		var desc [16]byte
		if _, err := io.ReadFull(e.z.br, desc[:12]); err != nil {
			e.z.done = true
			return fmt.Errorf("reading data descriptor: %w", err)
		}
		crcOff := 0
		if binary.LittleEndian.Uint32(desc[:4]) == sigDescriptor {
			// Signed descriptor: one more word to read.
			if _, err := io.ReadFull(e.z.br, desc[12:]); err != nil {
				e.z.done = true
				return fmt.Errorf("reading data descriptor: %w", err)
			}
			crcOff = 4
		}
		e.want = binary.LittleEndian.Uint32(desc[crcOff:])
	}

	if e.crc.Sum32() != e.want {
		return fmt.Errorf("%s: %w", e.Name, errZipChecksum)
	}
	return nil
}
