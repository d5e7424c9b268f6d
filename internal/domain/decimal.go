package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Decimal is a fixed-precision number persisted as BSON Decimal128.
// Used for money and for cached rating averages.
type Decimal struct {
	decimal.Decimal
}

func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{Decimal: d}
}

// MustDecimal parses s and panics on malformed input. Intended for constants and tests.
func MustDecimal(s string) Decimal {
	return Decimal{Decimal: decimal.RequireFromString(s)}
}

// MarshalBSONValue implements bson.ValueMarshaler.
func (d Decimal) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d128, err := primitive.ParseDecimal128(d.Decimal.String())
	if err != nil {
		return 0, nil, fmt.Errorf("encode decimal %s: %w", d.Decimal.String(), err)
	}
	return bson.MarshalValue(d128)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler. Older documents may
// hold doubles or integers, so those are accepted too.
func (d *Decimal) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Decimal128:
		d128, ok := raw.Decimal128OK()
		if !ok {
			return fmt.Errorf("decode decimal: invalid decimal128")
		}
		parsed, err := decimal.NewFromString(d128.String())
		if err != nil {
			return fmt.Errorf("decode decimal: %w", err)
		}
		d.Decimal = parsed
	case bsontype.Double:
		d.Decimal = decimal.NewFromFloat(raw.Double())
	case bsontype.Int32:
		d.Decimal = decimal.NewFromInt32(raw.Int32())
	case bsontype.Int64:
		d.Decimal = decimal.NewFromInt(raw.Int64())
	case bsontype.String:
		parsed, err := decimal.NewFromString(raw.StringValue())
		if err != nil {
			return fmt.Errorf("decode decimal: %w", err)
		}
		d.Decimal = parsed
	case bsontype.Null, bsontype.Undefined:
		d.Decimal = decimal.Zero
	default:
		return fmt.Errorf("decode decimal: unsupported bson type %s", t)
	}
	return nil
}
