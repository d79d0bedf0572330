package imagehost_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katalog/pkg/imagehost"
)

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newCloudinary(t *testing.T, baseURL string) *imagehost.Cloudinary {
	t.Helper()
	c, err := imagehost.NewCloudinary(imagehost.CloudinaryConfig{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
		Folder:    "e-commerce-products",
		BaseURL:   baseURL,
	})
	require.NoError(t, err)
	return c
}

func TestNilBlobResolvesToNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("image host must not be contacted without a blob")
	}))
	defer srv.Close()

	local, err := imagehost.NewLocal(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	resolvers := map[string]imagehost.Resolver{
		"cloudinary": newCloudinary(t, srv.URL),
		"local":      local,
		"nop":        imagehost.Nop{},
	}
	for name, r := range resolvers {
		url, err := r.Resolve(context.Background(), nil)
		assert.NoError(t, err, name)
		assert.Empty(t, url, name)
	}
}

func TestCloudinary_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/demo/image/upload"), r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}

		folder, publicID := r.FormValue("folder"), r.FormValue("public_id")
		assert.Equal(t, "e-commerce-products", folder)
		assert.True(t, strings.HasPrefix(publicID, "product_"))
		assert.NotContains(t, publicID, "-")
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.NotEmpty(t, r.FormValue("signature"))

		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, pngData, data)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"public_id":  folder + "/" + publicID,
			"secure_url": "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + publicID + ".png",
		})
	}))
	defer srv.Close()

	url, err := newCloudinary(t, srv.URL).Resolve(context.Background(), &imagehost.Blob{Filename: "shirt.png", Data: pngData})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://res.cloudinary.com/demo/image/upload/e-commerce-products/product_"))
}

func TestCloudinary_ResolveError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	url, err := newCloudinary(t, srv.URL).Resolve(context.Background(), &imagehost.Blob{Data: pngData})
	assert.Empty(t, url)
	var uploadErr *imagehost.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "cloudinary", uploadErr.Host)
}

func TestCloudinary_ResolveCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("cancelled upload must not reach the host")
	}))
	defer srv.Close()

	c := newCloudinary(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Resolve(ctx, &imagehost.Blob{Data: pngData})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocal_Resolve(t *testing.T) {
	dir := t.TempDir()
	local, err := imagehost.NewLocal(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	url, err := local.Resolve(context.Background(), &imagehost.Blob{Filename: "shirt.png", Data: pngData})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/product_"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	stored, err := os.ReadFile(filepath.Join(dir, path.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, pngData, stored)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestNop_RejectsBlobs(t *testing.T) {
	_, err := imagehost.Nop{}.Resolve(context.Background(), &imagehost.Blob{Data: pngData})
	var uploadErr *imagehost.UploadError
	assert.ErrorAs(t, err, &uploadErr)
}
