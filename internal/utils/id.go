package utils

import (
	"path"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a record id. ObjectID hex keeps ids roughly insertion ordered.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ObjectKey builds the object store key for an upload: <owner>/<uuid>_<name>.
func ObjectKey(owner, filename string) string {
	return owner + "/" + uuid.NewString() + "_" + SafeName(filename)
}

func ThumbKey(key string) string {
	return key + "_thumb.jpg"
}

// SafeName strips any directory components and control characters from a client supplied filename.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
