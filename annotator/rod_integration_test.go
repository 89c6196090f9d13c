//go:build integration

package annotator_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreybb/callcheck/annotator"
)

func TestRodRendererAgainstLookupPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/db/", func(w http.ResponseWriter, r *http.Request) {
		call := r.URL.Path[len("/db/"):]
		fmt.Fprintf(w, `<html><body><span class="csignm hamcall">%s</span></body></html>`, call)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	controlURL, err := launcher.New().Headless(true).Launch()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	base := srv.URL + "/db/"
	r, err := annotator.ConnectRod(ctx, controlURL, base, "")
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Navigate(ctx, annotator.LookupURL(base, "K1ABC")))

	displayed, ok, err := r.DisplayedCallsign(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "K1ABC", displayed)

	applied, err := annotator.Annotate(ctx, r, []string{"K1ABC"})
	require.NoError(t, err)
	assert.True(t, applied)
}
