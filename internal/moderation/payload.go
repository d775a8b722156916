package moderation

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

const payloadPrefix = "rb"

// ControlOp names what an inline control does.
type ControlOp string

const (
	OpConfirmBan ControlOp = "cb"
	OpRejectBan  ControlOp = "rb"
	OpUnmute     ControlOp = "um"
	OpUnban      ControlOp = "ub"
)

// Control is the decoded callback payload of an inline button.
type Control struct {
	Op       ControlOp
	TargetID int64
	ChatID   int64
}

// Encode renders the control as rb:<op>:<user>[:<chat>], always within the 64 byte callback limit.
func (c Control) Encode() string {
	parts := []string{payloadPrefix, string(c.Op), encodeID(c.TargetID)}
	if c.ChatID != 0 {
		parts = append(parts, encodeID(c.ChatID))
	}
	return strings.Join(parts, ":")
}

func IsControlPayload(data string) bool {
	return strings.HasPrefix(data, payloadPrefix+":")
}

func DecodeControl(data string) (Control, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 3 || len(parts) > 4 || parts[0] != payloadPrefix {
		return Control{}, fmt.Errorf("malformed control payload %q", data)
	}
	c := Control{Op: ControlOp(parts[1])}
	switch c.Op {
	case OpConfirmBan, OpRejectBan, OpUnmute, OpUnban:
	default:
		return Control{}, fmt.Errorf("unknown control op %q", parts[1])
	}
	var err error
	if c.TargetID, err = decodeID(parts[2]); err != nil {
		return Control{}, fmt.Errorf("target: %w", err)
	}
	if len(parts) == 4 {
		if c.ChatID, err = decodeID(parts[3]); err != nil {
			return Control{}, fmt.Errorf("chat: %w", err)
		}
	}
	return c, nil
}

// encodeID zig-zags the id so negative chat ids stay short, then strips leading zero bytes.
func encodeID(id int64) string {
	zz := uint64(id<<1) ^ uint64(id>>63)
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, zz)
	i := 0
	for i < len(buf)-1 && buf[i] == 0 {
		i++
	}
	return base64.RawURLEncoding.EncodeToString(buf[i:])
}

func decodeID(value string) (int64, error) {
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	if len(data) == 0 || len(data) > 8 {
		return 0, fmt.Errorf("invalid id length %d", len(data))
	}
	padded := make([]byte, 8-len(data), 8)
	padded = append(padded, data...)
	zz := binary.BigEndian.Uint64(padded)
	return int64(zz>>1) ^ -int64(zz&1), nil
}
