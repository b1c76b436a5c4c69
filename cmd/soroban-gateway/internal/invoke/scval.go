package invoke

import (
	"fmt"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// Symbol marks a string parameter that should be encoded as an ScSymbol
// instead of an ScString.
type Symbol string

// Address marks a string parameter holding a strkey account (G...) or
// contract (C...) address.
type Address string

// EncodeParameter converts a native Go value into its ledger value
// representation. An xdr.ScVal passes through untouched, so callers that
// already hold encoded values are not forced through the mapping.
func EncodeParameter(value interface{}) (xdr.ScVal, error) {
	switch v := value.(type) {
	case xdr.ScVal:
		return v, nil
	case bool:
		return xdr.ScVal{Type: xdr.ScValTypeScvBool, B: &v}, nil
	case uint32:
		u := xdr.Uint32(v)
		return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &u}, nil
	case int32:
		i := xdr.Int32(v)
		return xdr.ScVal{Type: xdr.ScValTypeScvI32, I32: &i}, nil
	case uint64:
		u := xdr.Uint64(v)
		return xdr.ScVal{Type: xdr.ScValTypeScvU64, U64: &u}, nil
	case int64:
		i := xdr.Int64(v)
		return xdr.ScVal{Type: xdr.ScValTypeScvI64, I64: &i}, nil
	case int:
		i := xdr.Int64(v)
		return xdr.ScVal{Type: xdr.ScValTypeScvI64, I64: &i}, nil
	case string:
		s := xdr.ScString(v)
		return xdr.ScVal{Type: xdr.ScValTypeScvString, Str: &s}, nil
	case Symbol:
		s := xdr.ScSymbol(v)
		return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &s}, nil
	case []byte:
		b := xdr.ScBytes(v)
		return xdr.ScVal{Type: xdr.ScValTypeScvBytes, Bytes: &b}, nil
	case Address:
		return encodeAddress(string(v))
	default:
		return xdr.ScVal{}, fmt.Errorf("unsupported parameter type %T", value)
	}
}

func encodeAddress(address string) (xdr.ScVal, error) {
	if accountID, err := xdr.AddressToAccountId(address); err == nil {
		scAddress := xdr.ScAddress{
			Type:      xdr.ScAddressTypeScAddressTypeAccount,
			AccountId: &accountID,
		}
		return xdr.ScVal{Type: xdr.ScValTypeScvAddress, Address: &scAddress}, nil
	}
	raw, err := strkey.Decode(strkey.VersionByteContract, address)
	if err != nil {
		return xdr.ScVal{}, fmt.Errorf("invalid address %q", address)
	}
	var contractID xdr.Hash
	copy(contractID[:], raw)
	scAddress := xdr.ScAddress{
		Type:       xdr.ScAddressTypeScAddressTypeContract,
		ContractId: &contractID,
	}
	return xdr.ScVal{Type: xdr.ScValTypeScvAddress, Address: &scAddress}, nil
}
