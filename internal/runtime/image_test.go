package runtime

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainPullProgress_Success(t *testing.T) {
	stream := strings.NewReader(
		`{"status":"Pulling from library/alpine","id":"latest"}` + "\n" +
			`{"status":"Downloading","progress":"[====>    ] 10MB/20MB","id":"abc123"}` + "\n" +
			`{"status":"Download complete","id":"abc123"}` + "\n" +
			`{"status":"Status: Downloaded newer image for alpine:latest"}` + "\n",
	)

	var records []ProgressRecord
	err := DrainPullProgress(stream, func(r ProgressRecord) {
		records = append(records, r)
	})

	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, "Status: Downloaded newer image for alpine:latest", records[3].Status)
}

func TestDrainPullProgress_ErrorInLastRecord(t *testing.T) {
	stream := strings.NewReader(
		`{"status":"Pulling from library/alpine"}` + "\n" +
			`{"error":"manifest unknown: manifest unknown"}` + "\n",
	)

	err := DrainPullProgress(stream, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPullFailed)
	assert.Contains(t, err.Error(), "manifest unknown")
}

func TestDrainPullProgress_SkipsMalformedLines(t *testing.T) {
	stream := strings.NewReader(
		`{"status":"ok"}` + "\n" +
			"not json at all\n" +
			`{"status":"still ok"}` + "\n",
	)

	var records []ProgressRecord
	err := DrainPullProgress(stream, func(r ProgressRecord) {
		records = append(records, r)
	})

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "still ok", records[1].Status)
}

func TestDrainPullProgress_SkipsBlankLines(t *testing.T) {
	stream := strings.NewReader("\n\n" + `{"status":"ok"}` + "\n\n")

	var records []ProgressRecord
	err := DrainPullProgress(stream, func(r ProgressRecord) {
		records = append(records, r)
	})

	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestDrainPullProgress_EmptyStream(t *testing.T) {
	err := DrainPullProgress(strings.NewReader(""), nil)
	assert.NoError(t, err)
}

func TestDrainPullProgress_NilCallback(t *testing.T) {
	stream := strings.NewReader(`{"status":"ok"}` + "\n")
	err := DrainPullProgress(stream, nil)
	assert.NoError(t, err)
}

type erroringReader struct{}

func (erroringReader) Read([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestDrainPullProgress_ScannerError(t *testing.T) {
	err := DrainPullProgress(erroringReader{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPullFailed)
}
