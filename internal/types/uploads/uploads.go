package uploads

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// UploadRecord links a stored video artifact to the identity and sport it was uploaded with.
type UploadRecord struct {
	ID        int64     `json:"id" db:"id"`
	UserName  *string   `json:"user_name" db:"user_name"`
	UserEmail *string   `json:"user_email" db:"user_email"`
	Sport     string    `json:"sport" db:"sport"`
	Filename  string    `json:"filename" db:"filename"`
	Filepath  string    `json:"filepath" db:"filepath"`
	SizeBytes int64     `json:"size_bytes" db:"size_bytes"`
	Checksum  string    `json:"checksum" db:"checksum"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	URL       string    `json:"url,omitempty" db:"-"`
}

// Identity is the optional, unverified name/email pair sent alongside an upload.
type Identity struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

var ErrInvalidIdentity = errors.New("user must be a JSON object with string name and email")

// ParseIdentity decodes the multipart "user" field. An empty payload yields nil.
// Empty strings are normalized to nil so they are stored as NULL.
func ParseIdentity(raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return nil, ErrInvalidIdentity
	}

	id := &Identity{}
	for key, dst := range map[string]**string{"name": &id.Name, "email": &id.Email} {
		value, ok := fields[key]
		if !ok || string(value) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, ErrInvalidIdentity
		}
		if s = strings.TrimSpace(s); s != "" {
			*dst = &s
		}
	}

	if id.Name == nil && id.Email == nil {
		return nil, nil
	}
	return id, nil
}

// EmailOrEmpty returns the identity email, or "" when absent.
func (i *Identity) EmailOrEmpty() string {
	if i == nil || i.Email == nil {
		return ""
	}
	return *i.Email
}

// RecordID accepts both JSON numbers and numeric strings.
type RecordID int64

func (id *RecordID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.New("id must be an integer")
	}
	*id = RecordID(v)
	return nil
}

type LoginRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

type LoginUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoginResponse struct {
	Success bool      `json:"success"`
	User    LoginUser `json:"user"`
	Token   string    `json:"token,omitempty"`
}

type ListUploadsRequest struct {
	Email string `json:"email" validate:"required"`
}

type ListUploadsResponse struct {
	Success bool           `json:"success"`
	Uploads []UploadRecord `json:"uploads"`
}

type DeleteUploadRequest struct {
	ID RecordID `json:"id" validate:"required"`
}

type UploadResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Upload  *UploadRecord `json:"upload,omitempty"`
}
