package rtmp

import "github.com/brasswatch/streamconnector/internal/amf"

// Command is one decoded AMF command message: an ordered sequence whose
// first two elements are always [name, transaction_id] by protocol
// convention, followed by a command-specific argument list. Arg indexes
// follow that full sequence (arg 2 is almost always the command object,
// arg 3 the first command-specific argument), matching how the command
// dispatcher itself is specified.
type Command struct {
	Name          string
	TransactionID float64
	seq           []*amf.Value
}

// DecodeCommand parses an ordered AMF0 command sequence out of payload.
func DecodeCommand(payload []byte) *Command {
	seq := amf.NewDecoder(payload).ReadSequence()

	cmd := &Command{seq: seq}

	if len(seq) > 0 {
		cmd.Name = seq[0].Str()
	}
	if len(seq) > 1 {
		cmd.TransactionID = seq[1].Float()
	}

	return cmd
}

// Arg returns the i-th element of the full command sequence (0 = the
// command name, 1 = the transaction id, 2 = the command object, 3+ =
// command-specific arguments), or Undefined if out of range.
func (c *Command) Arg(i int) *amf.Value {
	if c == nil || i < 0 || i >= len(c.seq) {
		return amf.Undefined()
	}
	return c.seq[i]
}

// EncodeCommand serializes an AMF0 command sequence: name, transaction id,
// then the given trailing values in order.
func EncodeCommand(name string, transactionID float64, rest ...*amf.Value) []byte {
	buf := amf.EncodeAMF0(amf.String(name))
	buf = append(buf, amf.EncodeAMF0(amf.Number(transactionID))...)
	for _, v := range rest {
		buf = append(buf, amf.EncodeAMF0(v)...)
	}
	return buf
}

// StatusObject builds the `info` object accompanying an onStatus command
// (level/code/description), the shape every onStatus message in §4.8/§4.9
// shares.
func StatusObject(level string, code string, description string) *amf.Value {
	fields := map[string]*amf.Value{
		"level": amf.String(level),
		"code":  amf.String(code),
	}
	if description != "" {
		fields["description"] = amf.String(description)
	}
	return amf.Object(fields)
}
