package avatar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePassThrough(t *testing.T) {
	pexels := "https://images.pexels.com/photos/774909/pexels-photo-774909.jpeg"

	assert.Equal(t, pexels, New("demo", "", "").Resolve(pexels))
	assert.Equal(t, "staff/alex", New("", "", "").Resolve("staff/alex"))
	assert.Equal(t, "", New("demo", "", "").Resolve(""))

	var nilResolver *Resolver
	assert.Equal(t, "x", nilResolver.Resolve("x"))
}

func TestResolveCloudinaryPublicID(t *testing.T) {
	r := New("demo", "", "/avatars/")
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/c_fill,h_150,w_150/avatars/alex", r.Resolve("alex"))
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/c_fill,h_150,w_150/avatars/alex", r.Resolve("avatars/alex"))
}

func TestResolveSigned(t *testing.T) {
	r := New("demo", "secret", "")
	got := r.Resolve("alex")

	prefix := "https://res.cloudinary.com/demo/image/upload/s--"
	assert.True(t, strings.HasPrefix(got, prefix), got)
	rest := strings.TrimPrefix(got, prefix)
	assert.Equal(t, "--/c_fill,h_150,w_150/alex", rest[8:])
	assert.Equal(t, got, r.Resolve("alex"), "signature is deterministic")
	assert.NotEqual(t, got, New("demo", "other", "").Resolve("alex"))
}
