package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersion1 = 1

// ErrCorruptSession is returned when a stored session blob cannot be decoded.
var ErrCorruptSession = errors.New("corrupt session record")

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("session field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", ErrCorruptSession
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", ErrCorruptSession
	}
	return string(b), nil
}

func writeMap(buf *bytes.Buffer, m map[string]string) error {
	if len(m) > 65535 {
		return errors.New("session map too large")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(m))); err != nil {
		return err
	}
	for k, v := range m {
		if err := writeString(buf, k); err != nil {
			return err
		}
		if err := writeString(buf, v); err != nil {
			return err
		}
	}
	return nil
}

func readMap(r *bytes.Reader) (map[string]string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, ErrCorruptSession
	}
	if n == 0 {
		return nil, nil
	}
	m := make(map[string]string, n)
	for i := 0; i < int(n); i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readString(r)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// Encode serializes a session into the versioned binary record format.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersion1)

	if err := writeString(&buf, s.UserID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, s.ChannelAddress); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LastActivity); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.MessageCount); err != nil {
		return nil, err
	}

	if err := writeString(&buf, s.FlowName); err != nil {
		return nil, err
	}
	buf.WriteByte(s.FlowStep)
	if err := writeMap(&buf, s.FlowData); err != nil {
		return nil, err
	}

	if s.AwaitingPin {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.WriteByte(s.PendingKind)
	if err := writeMap(&buf, s.PendingPayload); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a binary session record produced by [Encode].
func Decode(data []byte) (*Session, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, ErrCorruptSession
	}
	if version != sessionFormatVersion1 {
		return nil, ErrCorruptSession
	}

	s := &Session{}

	if s.UserID, err = readString(r); err != nil {
		return nil, err
	}
	if s.ChannelAddress, err = readString(r); err != nil {
		return nil, err
	}

	if err := binary.Read(r, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, ErrCorruptSession
	}
	if err := binary.Read(r, binary.BigEndian, &s.LastActivity); err != nil {
		return nil, ErrCorruptSession
	}
	if err := binary.Read(r, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, ErrCorruptSession
	}
	if err := binary.Read(r, binary.BigEndian, &s.MessageCount); err != nil {
		return nil, ErrCorruptSession
	}

	if s.FlowName, err = readString(r); err != nil {
		return nil, err
	}
	if s.FlowStep, err = r.ReadByte(); err != nil {
		return nil, ErrCorruptSession
	}
	if s.FlowData, err = readMap(r); err != nil {
		return nil, err
	}

	awaiting, err := r.ReadByte()
	if err != nil {
		return nil, ErrCorruptSession
	}
	s.AwaitingPin = awaiting == 1
	if s.PendingKind, err = r.ReadByte(); err != nil {
		return nil, ErrCorruptSession
	}
	if s.PendingPayload, err = readMap(r); err != nil {
		return nil, err
	}

	return s, nil
}
