package tensorboard

import (
	"bytes"
	"encoding/binary"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, fs afero.Fs, dir string) []*Event {
	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.True(t, strings.HasPrefix(infos[0].Name(), "events.out.tfevents."))

	data, err := afero.ReadFile(fs, filepath.Join(dir, infos[0].Name()))
	require.NoError(t, err)
	r := bytes.NewReader(data)
	var events []*Event
	for {
		rec, err := ReadRecord(r)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		e, err := ParseEvent(rec)
		require.NoError(t, err)
		events = append(events, e)
	}
	return events
}

func TestMaskedCRC(t *testing.T) {
	assert.Equal(t, uint32(0xa282ead8), maskedCRC(nil))
}

func TestWriter_Scalars(t *testing.T) {
	fs := afero.NewMemMapFs()
	id := uuid.New()
	w, err := NewWriter(fs, "logs", id)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(w.Path(), id.String()))
	require.NoError(t, w.AddScalar("epoch_loss", 0, 0.5))
	require.NoError(t, w.AddScalar("epoch_loss", 3, 0.25))
	require.NoError(t, w.Close())

	events := readEvents(t, fs, "logs")
	require.Len(t, events, 3)
	assert.Equal(t, FileVersion, events[0].FileVersion)
	assert.Greater(t, events[0].WallTime, 0.0)
	assert.Equal(t, map[string]float32{"epoch_loss": 0.5}, events[1].Scalars)
	assert.Equal(t, int64(3), events[2].Step)
	assert.Equal(t, map[string]float32{"epoch_loss": 0.25}, events[2].Scalars)
}

func TestCallback_SplitsValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	cb, err := NewCallback(fs, "exp/tb_logs", uuid.New())
	require.NoError(t, err)
	require.NoError(t, cb.OnEpochEnd(1, map[string]float64{"loss": 0.5, "val_loss": 0.75}))
	require.NoError(t, cb.OnEpochEnd(2, map[string]float64{"loss": 0.25}))
	require.NoError(t, cb.Close())

	train := readEvents(t, fs, "exp/tb_logs/train")
	require.Len(t, train, 3)
	assert.Equal(t, int64(0), train[1].Step)
	assert.Equal(t, float32(0.5), train[1].Scalars["epoch_loss"])
	assert.Equal(t, int64(1), train[2].Step)

	validation := readEvents(t, fs, "exp/tb_logs/validation")
	require.Len(t, validation, 2)
	assert.Equal(t, float32(0.75), validation[1].Scalars["epoch_loss"])
}

func TestReadRecord_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRecord(&buf, []byte("payload")))
	data := buf.Bytes()

	rec, err := ReadRecord(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), rec)

	data[13] ^= 0xff
	_, err = ReadRecord(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrCorruptRecord)

	_, err = ReadRecord(bytes.NewReader(data[:5]))
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestReadRecord_OversizedLength(t *testing.T) {
	for _, n := range []uint64{MaxRecordSize + 1, 1<<64 - 1, 1<<64 - 4} {
		header := binary.LittleEndian.AppendUint64(nil, n)
		header = binary.LittleEndian.AppendUint32(header, maskedCRC(header))
		_, err := ReadRecord(bytes.NewReader(append(header, "payload"...)))
		assert.ErrorIs(t, err, ErrCorruptRecord, "length %d", n)
	}
}
