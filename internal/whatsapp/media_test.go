package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingVision struct {
	fakeVision
	mu   sync.Mutex
	seen []string
}

func (r *recordingVision) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	r.mu.Lock()
	r.seen = append(r.seen, imageURL)
	r.mu.Unlock()
	return r.fakeVision.DescribeImage(ctx, imageURL)
}

func TestMediaDescriber_Describes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "AC123", user)
		require.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	vision := &recordingVision{fakeVision: fakeVision{description: "una foto de un zapato"}}
	m := NewMediaDescriber(vision, "AC123", "secret")

	description, err := m.Describe(context.Background(), srv.URL+"/media/1")
	require.NoError(t, err)
	require.Equal(t, "una foto de un zapato", description)

	// в модель уходит data URL со скачанным содержимым
	require.Len(t, vision.seen, 1)
	require.True(t, strings.HasPrefix(vision.seen[0], "data:image/jpeg;base64,"))
}

func TestMediaDescriber_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	vision := &recordingVision{}
	m := NewMediaDescriber(vision, "", "")

	_, err := m.Describe(context.Background(), srv.URL+"/media/1")
	require.ErrorIs(t, err, ErrMediaFetch)
	require.Empty(t, vision.seen) // до модели дело не дошло
}

func TestMediaDescriber_EmptyDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	m := NewMediaDescriber(&fakeVision{description: ""}, "", "")

	_, err := m.Describe(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrDescriptionUnavailable)
}

func TestMediaDescriber_NetworkError(t *testing.T) {
	m := NewMediaDescriber(&fakeVision{}, "", "")

	_, err := m.Describe(context.Background(), "http://127.0.0.1:1/none")
	require.ErrorIs(t, err, ErrMediaFetch)
}
