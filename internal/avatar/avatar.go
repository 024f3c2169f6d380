package avatar

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"
)

// Transformation is the delivery transform applied to every avatar.
const Transformation = "c_fill,h_150,w_150"

// Resolver turns avatar references into display URLs. References that are
// already absolute URLs pass through. Bare references are treated as
// Cloudinary public ids when a cloud name is configured.
type Resolver struct {
	CloudName string
	APISecret string
	Folder    string
}

// New creates a resolver; an empty cloudName disables Cloudinary delivery.
func New(cloudName, apiSecret, folder string) *Resolver {
	return &Resolver{CloudName: cloudName, APISecret: apiSecret, Folder: strings.Trim(folder, "/")}
}

// Resolve returns the display URL for ref.
func (r *Resolver) Resolve(ref string) string {
	if ref == "" || r == nil || r.CloudName == "" {
		return ref
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	publicID := strings.TrimPrefix(ref, "/")
	if r.Folder != "" && !strings.HasPrefix(publicID, r.Folder+"/") {
		publicID = r.Folder + "/" + publicID
	}
	path := Transformation + "/" + publicID
	if r.APISecret != "" {
		path = r.sign(path) + "/" + path
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s", r.CloudName, path)
}

// sign computes the Cloudinary signed-delivery component for path:
// the first 8 characters of the URL-safe base64 SHA-1 of path + secret.
func (r *Resolver) sign(path string) string {
	h := sha1.New()
	h.Write([]byte(path + r.APISecret))
	enc := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return "s--" + enc[:8] + "--"
}
