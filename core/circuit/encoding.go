package circuit

import "github.com/fxamacker/cbor/v2"

// wireForm is the exported shadow of Circuit's unexported fields,
// the shape the codec actually walks. Circuit itself stays immutable
// and unexported-field-only; wireForm only exists at the encoding
// boundary.
type wireForm struct {
	WireCount uint64
	Gates     []Gate
	Outputs   []Wire
	InputMeta map[Wire]InputRef
}

// MarshalBinary serializes c so the orchestrator can ship a
// byte-identical circuit to all three parties.
func (c *Circuit) MarshalBinary() ([]byte, error) {
	wf := wireForm{
		WireCount: c.wireCount,
		Gates:     c.gates,
		Outputs:   c.outputs,
		InputMeta: c.inputMeta,
	}
	return cbor.Marshal(wf)
}

// UnmarshalBinary decodes a Circuit produced by MarshalBinary. The
// result is re-validated by the caller via Validate before any
// network I/O.
func (c *Circuit) UnmarshalBinary(data []byte) error {
	var wf wireForm
	if err := cbor.Unmarshal(data, &wf); err != nil {
		return err
	}
	c.wireCount = wf.WireCount
	c.gates = wf.Gates
	c.outputs = wf.Outputs
	c.inputMeta = wf.InputMeta
	return nil
}
