package share

import (
	"fmt"

	"github.com/threepartysql/threepc/core/bitshare"
	"github.com/threepartysql/threepc/core/circuit"
)

// BundleInputs binds one party's Bundle to a circuit's input wires
// using manifest, producing the WireTable the engine
// expects. Every InputRef the manifest names for bundle's table must
// fall within the bundle's flattened bitstrings, in the same row-major,
// column-major, LSB-first order Flatten produced them in.
func BundleInputs(bundle Bundle, manifest circuit.Manifest) (map[circuit.Wire]bitshare.Pair, error) {
	rowWidth := bundle.Schema.RowBitWidth()
	inputs := make(map[circuit.Wire]bitshare.Pair, len(manifest))
	for ref, wire := range manifest {
		if ref.TableID != bundle.TableID {
			continue
		}
		colOff := bundle.Schema.ColumnBitOffset(ref.Column)
		idx := ref.Row*rowWidth + colOff + ref.BitIdx
		if idx < 0 || idx >= len(bundle.Own) || idx >= len(bundle.Right) {
			return nil, fmt.Errorf("share: input ref %+v out of range for bundle of table %q", ref, bundle.TableID)
		}
		inputs[wire] = bitshare.Pair{Own: bundle.Own[idx], Right: bundle.Right[idx]}
	}
	return inputs, nil
}
