package tensorboard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// ErrCorruptRecord is returned for a record whose checksum does not match.
var ErrCorruptRecord = errors.New("tensorboard: corrupt record")

// MaxRecordSize bounds the payload ReadRecord accepts.
const MaxRecordSize = 64 << 20

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func maskedCRC(data []byte) uint32 {
	crc := crc32.Checksum(data, castagnoli)
	return ((crc >> 15) | (crc << 17)) + 0xa282ead8
}

// writeRecord frames data as a TFRecord: length, length crc, data, data crc.
func writeRecord(w io.Writer, data []byte) error {
	buf := make([]byte, 0, 16+len(data))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(data)))
	buf = binary.LittleEndian.AppendUint32(buf, maskedCRC(buf[:8]))
	buf = append(buf, data...)
	buf = binary.LittleEndian.AppendUint32(buf, maskedCRC(data))
	_, err := w.Write(buf)
	return err
}

// ReadRecord reads one TFRecord, returning io.EOF at a clean end of stream.
func ReadRecord(r io.Reader) ([]byte, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated header", ErrCorruptRecord)
		}
		return nil, err
	}
	if binary.LittleEndian.Uint32(header[8:]) != maskedCRC(header[:8]) {
		return nil, fmt.Errorf("%w: length checksum", ErrCorruptRecord)
	}
	n := binary.LittleEndian.Uint64(header[:8])
	if n > MaxRecordSize {
		return nil, fmt.Errorf("%w: length %d exceeds %d", ErrCorruptRecord, n, MaxRecordSize)
	}
	data := make([]byte, n+4)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if binary.LittleEndian.Uint32(data[n:]) != maskedCRC(data[:n]) {
		return nil, fmt.Errorf("%w: data checksum", ErrCorruptRecord)
	}
	return data[:n], nil
}
