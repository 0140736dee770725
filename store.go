package datastep

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// File extensions of the header and data files of a data set.
const (
	HeaderExt = ".hdr"
	DataExt   = ".dat"
)

// Options define store specific options.
type Options struct {
	// The compression codec used when writing. Readers detect the codec
	// from the file preamble.
	// Default: SnappyCompression.
	Compression Compression

	// FlushInterval is the number of rows written between two flushes of
	// the data stream. Rows written after the last flush are lost if the
	// process crashes before Close.
	// Default: 10000.
	FlushInterval int

	// BufferSize is the size of the read and write buffers in bytes.
	// Default: 64KiB.
	BufferSize int

	// Logger receives debug events. Default: no logging.
	Logger *zap.SugaredLogger
}

func (o *Options) norm() *Options {
	var oo Options
	if o != nil {
		oo = *o
	}

	if !oo.Compression.isValid() {
		oo.Compression = SnappyCompression
	}
	if oo.FlushInterval < 1 {
		oo.FlushInterval = 10000
	}
	if oo.BufferSize < 1 {
		oo.BufferSize = 1 << 16
	}
	if oo.Logger == nil {
		oo.Logger = zap.NewNop().Sugar()
	}

	return &oo
}

// Metadata describes a data set.
type Metadata struct {
	KeyMap     *KeyMap
	Attributes map[string]string
}

type headerBlob struct {
	Variables  []Variable        `json:"variables"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type storeMode int

const (
	modeClosed storeMode = iota
	modeRead
	modeWrite
)

// Store is the persistent representation of a single data set: a header
// file holding the metadata and a data file holding a sequential stream of
// rows. Both files are compressed.
//
// A Store is not safe for concurrent use. It must be opened either for
// reading or for writing, never both.
type Store struct {
	name       string
	headerPath string
	dataPath   string
	o          *Options
	lib        *Library

	mode storeMode
	keys *KeyMap

	// write state
	hfile       *os.File
	dfile       *os.File
	dcomp       compressor
	dbuf        *bufio.Writer
	metaWritten bool
	written     int64
	scratch     []byte

	// read state
	dsrc     io.ReadCloser
	dread    *bufio.Reader
	curr     *Row
	ahead    *Row
	hasAhead bool
	decoded  int64
	tmp      []byte
}

// NewStore returns a handle for the data set name within dir. No files
// are touched until the store is opened.
func NewStore(dir, name string, o *Options) *Store {
	return &Store{
		name:       name,
		headerPath: filepath.Join(dir, name+HeaderExt),
		dataPath:   filepath.Join(dir, name+DataExt),
		o:          o.norm(),
	}
}

// Name returns the data set name.
func (s *Store) Name() string { return s.name }

// HeaderPath returns the path of the header file.
func (s *Store) HeaderPath() string { return s.headerPath }

// DataPath returns the path of the data file.
func (s *Store) DataPath() string { return s.dataPath }

// KeyMap returns the key map once metadata was written or read.
func (s *Store) KeyMap() *KeyMap { return s.keys }

// RowsWritten returns the number of rows written since OpenForWrite.
func (s *Store) RowsWritten() int64 { return s.written }

// Exists returns true if the header file of the data set exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.headerPath)
	return err == nil
}

// OpenForWrite creates (or truncates) both files of the data set.
func (s *Store) OpenForWrite() (err error) {
	if s.mode != modeClosed {
		return ErrBusy
	}
	if err := s.register(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			s.unregister()
		}
	}()

	hfile, err := os.Create(s.headerPath)
	if err != nil {
		return &StreamError{Op: "create", Path: s.headerPath, Record: -1, Err: err}
	}
	dfile, err := os.Create(s.dataPath)
	if err != nil {
		_ = hfile.Close()
		return &StreamError{Op: "create", Path: s.dataPath, Record: -1, Err: err}
	}
	if _, err := dfile.Write(appendPreamble(nil, s.o.Compression, fileKindData)); err != nil {
		_ = multierr.Combine(hfile.Close(), dfile.Close())
		return &StreamError{Op: "write", Path: s.dataPath, Record: -1, Err: err}
	}
	dcomp, err := newCompressor(dfile, s.o.Compression)
	if err != nil {
		_ = multierr.Combine(hfile.Close(), dfile.Close())
		return &StreamError{Op: "create", Path: s.dataPath, Record: -1, Err: err}
	}

	s.hfile, s.dfile = hfile, dfile
	s.dcomp = dcomp
	s.dbuf = bufio.NewWriterSize(dcomp, s.o.BufferSize)
	s.keys = nil
	s.metaWritten = false
	s.written = 0
	s.mode = modeWrite

	s.o.Logger.Debugw("Opened data set for write", "name", s.name, "compression", s.o.Compression.String())
	return nil
}

// OpenForRead opens the data file for reading. ReadMetadata must be called
// before the first ReadRow. It returns a NotFoundError if the header does
// not exist.
func (s *Store) OpenForRead() (err error) {
	if s.mode != modeClosed {
		return ErrBusy
	}
	if err := s.register(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			s.unregister()
		}
	}()
	if !s.Exists() {
		return &NotFoundError{Name: s.name, Path: s.headerPath}
	}

	dfile, err := os.Open(s.dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			err = ErrInconsistent
		}
		return &StreamError{Op: "open", Path: s.dataPath, Record: -1, Err: err}
	}
	src, err := openStream(dfile, fileKindData)
	if err != nil {
		_ = dfile.Close()
		return &StreamError{Op: "open", Path: s.dataPath, Record: -1, Err: err}
	}

	s.dsrc = src
	s.dread = bufio.NewReaderSize(src, s.o.BufferSize)
	s.keys = nil
	s.curr, s.ahead = nil, nil
	s.hasAhead = false
	s.decoded = 0
	s.mode = modeRead

	s.o.Logger.Debugw("Opened data set for read", "name", s.name)
	return nil
}

// WriteMetadata writes the header. It must be called exactly once, before
// the first WriteRow.
func (s *Store) WriteMetadata(meta *Metadata) error {
	if s.mode != modeWrite || s.metaWritten {
		return errWrongMode
	}
	if meta == nil || meta.KeyMap == nil {
		return &ConfigError{Param: "metadata", Reason: "no key map given"}
	}

	blob := headerBlob{Variables: meta.KeyMap.Variables(), Attributes: meta.Attributes}
	if err := s.writeHeader(&blob); err != nil {
		return err
	}
	s.keys = meta.KeyMap
	return nil
}

func (s *Store) writeHeader(blob *headerBlob) error {
	data, err := gojson.Marshal(blob)
	if err != nil {
		return &StreamError{Op: "encode", Path: s.headerPath, Record: -1, Err: err}
	}

	if _, err := s.hfile.Write(appendPreamble(nil, s.o.Compression, fileKindHeader)); err != nil {
		return &StreamError{Op: "write", Path: s.headerPath, Record: -1, Err: err}
	}
	comp, err := newCompressor(s.hfile, s.o.Compression)
	if err != nil {
		return &StreamError{Op: "write", Path: s.headerPath, Record: -1, Err: err}
	}
	if _, err := comp.Write(data); err != nil {
		_ = comp.Close()
		return &StreamError{Op: "write", Path: s.headerPath, Record: -1, Err: err}
	}
	if err := comp.Close(); err != nil {
		return &StreamError{Op: "write", Path: s.headerPath, Record: -1, Err: err}
	}
	s.metaWritten = true
	return nil
}

// ReadMetadata reads the header and loads the key map. It may be called on a
// closed store or one opened for reading. A closed handle fails with ErrBusy
// while another handle of the same library has the data set open.
func (s *Store) ReadMetadata() (*Metadata, error) {
	if s.mode == modeWrite {
		return nil, errWrongMode
	}
	if s.mode == modeClosed && s.lib != nil && s.lib.heldByOther(s) {
		return nil, ErrBusy
	}

	f, err := os.Open(s.headerPath)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{Name: s.name, Path: s.headerPath}
	} else if err != nil {
		return nil, &StreamError{Op: "open", Path: s.headerPath, Record: -1, Err: err}
	}

	src, err := openStream(f, fileKindHeader)
	if err != nil {
		_ = f.Close()
		return nil, &StreamError{Op: "open", Path: s.headerPath, Record: -1, Err: err}
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, &StreamError{Op: "read", Path: s.headerPath, Record: -1, Err: err}
	}

	var blob headerBlob
	if err := gojson.Unmarshal(data, &blob); err != nil {
		return nil, &StreamError{Op: "decode", Path: s.headerPath, Record: -1, Err: err}
	}
	keys, err := NewKeyMap(blob.Variables...)
	if err != nil {
		return nil, &StreamError{Op: "decode", Path: s.headerPath, Record: -1, Err: err}
	}

	s.keys = keys
	return &Metadata{KeyMap: keys, Attributes: blob.Attributes}, nil
}

// WriteRow appends a row to the data stream. The row must share the key
// layout of the metadata.
func (s *Store) WriteRow(row *Row) error {
	if s.mode != modeWrite {
		return errWrongMode
	}
	if s.keys == nil {
		return ErrNoMetadata
	}
	if s.keys.Len() == 0 || !s.keys.Equal(row.keys) {
		return ErrKeyMapMismatch
	}

	s.scratch = row.AppendBinary(s.scratch[:0])
	if _, err := s.dbuf.Write(s.scratch); err != nil {
		return &StreamError{Op: "write", Path: s.dataPath, Record: s.written, Err: err}
	}

	s.written++
	if s.written%int64(s.o.FlushInterval) == 0 {
		return s.flush()
	}
	return nil
}

func (s *Store) flush() error {
	if err := s.dbuf.Flush(); err != nil {
		return &StreamError{Op: "flush", Path: s.dataPath, Record: s.written, Err: err}
	}
	if err := s.dcomp.Flush(); err != nil {
		return &StreamError{Op: "flush", Path: s.dataPath, Record: s.written, Err: err}
	}
	return nil
}

// ReadRow returns the next row or io.EOF. The stream is read one record
// ahead, so the final row is returned with LastRow set.
//
// The returned row is owned by the store and overwritten by the next call
// to ReadRow, it must be copied if needed for longer.
func (s *Store) ReadRow() (*Row, error) {
	if s.mode != modeRead {
		if s.mode == modeClosed {
			return nil, ErrClosed
		}
		return nil, errWrongMode
	}
	if s.keys == nil {
		return nil, ErrNoMetadata
	}

	if s.ahead == nil {
		s.curr, s.ahead = NewRow(s.keys), NewRow(s.keys)
		ok, err := s.decode(s.ahead)
		if err != nil {
			return nil, err
		}
		s.hasAhead = ok
	}
	if !s.hasAhead {
		return nil, io.EOF
	}

	s.curr, s.ahead = s.ahead, s.curr
	ok, err := s.decode(s.ahead)
	if err != nil {
		return nil, err
	}
	s.hasAhead = ok
	s.curr.last = !ok
	return s.curr, nil
}

func (s *Store) decode(row *Row) (bool, error) {
	if row.Len() == 0 {
		return false, nil
	}

	var err error
	if s.tmp, err = row.readFrom(s.dread, s.tmp); err == io.EOF {
		return false, nil
	} else if err != nil {
		return false, &StreamError{Op: "read", Path: s.dataPath, Record: s.decoded, Err: err}
	}
	s.decoded++
	return true, nil
}

// Close flushes pending writes and closes both files. It is safe to call
// Close multiple times.
func (s *Store) Close() error {
	var err error
	switch s.mode {
	case modeClosed:
		return nil
	case modeWrite:
		if !s.metaWritten {
			err = s.writeHeader(&headerBlob{Variables: []Variable{}})
		}
		err = multierr.Combine(
			err,
			s.flush(),
			s.dcomp.Close(),
			s.dfile.Close(),
			s.hfile.Close(),
		)
		s.o.Logger.Debugw("Closed data set", "name", s.name, "rows", s.written)
		s.hfile, s.dfile, s.dcomp, s.dbuf = nil, nil, nil, nil
	case modeRead:
		err = s.dsrc.Close()
		s.o.Logger.Debugw("Closed data set", "name", s.name, "rows", s.decoded)
		s.dsrc, s.dread = nil, nil
		s.curr, s.ahead = nil, nil
	}

	s.mode = modeClosed
	s.unregister()
	return err
}

// CreateEmpty writes a valid data set without variables or rows.
func (s *Store) CreateEmpty() error {
	if err := s.OpenForWrite(); err != nil {
		return err
	}
	return s.Close()
}

// Delete removes both files of a closed data set. If only one of the files
// exists, it is removed and ErrInconsistent is returned. Delete fails with
// ErrBusy while another handle of the same library has the data set open.
func (s *Store) Delete() error {
	if s.mode != modeClosed || (s.lib != nil && s.lib.heldByOther(s)) {
		return ErrBusy
	}

	herr := os.Remove(s.headerPath)
	derr := os.Remove(s.dataPath)
	hmiss, dmiss := os.IsNotExist(herr), os.IsNotExist(derr)

	switch {
	case hmiss && dmiss:
		return &NotFoundError{Name: s.name, Path: s.headerPath}
	case hmiss:
		return multierr.Append(&StreamError{Op: "delete", Path: s.headerPath, Record: -1, Err: ErrInconsistent}, pathErr(derr))
	case dmiss:
		return multierr.Append(&StreamError{Op: "delete", Path: s.dataPath, Record: -1, Err: ErrInconsistent}, pathErr(herr))
	}
	return multierr.Combine(pathErr(herr), pathErr(derr))
}

func (s *Store) register() error {
	if s.lib != nil {
		return s.lib.register(s)
	}
	return nil
}

func (s *Store) unregister() {
	if s.lib != nil {
		s.lib.unregister(s)
	}
}

// --------------------------------------------------------------------

// openStream validates the preamble of f and returns a decompressing reader.
func openStream(f io.Reader, kind byte) (io.ReadCloser, error) {
	pre := make([]byte, preambleLen)
	if _, err := io.ReadFull(f, pre); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, err
	}

	c, err := parsePreamble(pre, kind)
	if err != nil {
		return nil, err
	}

	dec, err := newDecompressor(f, c)
	if err != nil {
		return nil, err
	}
	if fc, ok := f.(io.Closer); ok {
		return &streamCloser{ReadCloser: dec, file: fc}, nil
	}
	return dec, nil
}

type streamCloser struct {
	io.ReadCloser
	file io.Closer
}

func (c *streamCloser) Close() error {
	return multierr.Combine(c.ReadCloser.Close(), c.file.Close())
}

func pathErr(err error) error {
	if err == nil {
		return nil
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return &StreamError{Op: "delete", Path: perr.Path, Record: -1, Err: perr.Err}
	}
	return err
}
