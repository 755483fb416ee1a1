package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionCurrent = 1

// Encode serializes a session into the compact versioned binary form stored
// in Redis. Encoding is deterministic: the same session always produces the
// same bytes, which the Redis store relies on for exact-value removal.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)

	for _, field := range []string{
		s.SessionID,
		s.UserID,
		s.Audience,
		s.AccessTokenID,
		s.RefreshTokenID,
	} {
		if len(field) > 255 {
			return nil, errors.New("session field too long")
		}
		buf.WriteByte(byte(len(field)))
		buf.WriteString(field)
	}

	for _, ts := range []int64{s.CreatedAt, s.AccessExpiresAt, s.RefreshExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses the binary form produced by Encode.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}
	for _, target := range []*string{
		&s.SessionID,
		&s.UserID,
		&s.Audience,
		&s.AccessTokenID,
		&s.RefreshTokenID,
	} {
		length, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		field := make([]byte, length)
		if _, err := io.ReadFull(reader, field); err != nil {
			return nil, err
		}
		*target = string(field)
	}

	for _, target := range []*int64{&s.CreatedAt, &s.AccessExpiresAt, &s.RefreshExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, target); err != nil {
			return nil, err
		}
	}

	return s, nil
}
