package overflow

import (
	"errors"
	"math"
	"math/big"
	"testing"
)

func TestAdd32(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint32
		want    uint32
		wantErr bool
	}{
		{"zero", 0, 0, 0, false},
		{"small", 8, 16, 24, false},
		{"max plus zero", math.MaxUint32, 0, math.MaxUint32, false},
		{"exactly max", math.MaxUint32 - 5, 5, math.MaxUint32, false},
		{"one past max", math.MaxUint32, 1, 0, true},
		{"both large", 0x80000000, 0x80000000, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add32(tt.a, tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Add32() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrOverflow) {
				t.Errorf("Add32() error = %v, want ErrOverflow", err)
			}
			if got != tt.want {
				t.Errorf("Add32() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMul32(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint32
		want    uint32
		wantErr bool
	}{
		{"zero right", math.MaxUint32, 0, 0, false},
		{"zero left", 0, math.MaxUint32, 0, false},
		{"tools", 3, 8, 24, false},
		{"exactly max", 0xffff, 0x10001, math.MaxUint32, false},
		{"overflow", 0x10000, 0x10000, 0, true},
		{"large count", 0x20000000, 8, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Mul32(tt.a, tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Mul32() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Mul32() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestAgainstBigInt checks both widths against arbitrary precision arithmetic.
func TestAgainstBigInt(t *testing.T) {
	vals := []uint64{0, 1, 2, 3, 7, 0xff, 0xffff, 0x10000, 0x7fffffff, 0x80000000, 0xffffffff,
		0x100000000, 0xffffffffffff, 0x7fffffffffffffff, 0x8000000000000000, math.MaxUint64}

	max32 := new(big.Int).SetUint64(math.MaxUint32)
	max64 := new(big.Int).SetUint64(math.MaxUint64)

	for _, a := range vals {
		for _, b := range vals {
			ba, bb := new(big.Int).SetUint64(a), new(big.Int).SetUint64(b)
			sum := new(big.Int).Add(ba, bb)
			prod := new(big.Int).Mul(ba, bb)

			got, err := Add64(a, b)
			if fits := sum.Cmp(max64) <= 0; fits != (err == nil) || (fits && got != sum.Uint64()) {
				t.Errorf("Add64(%#x, %#x) = %#x, %v", a, b, got, err)
			}
			got, err = Mul64(a, b)
			if fits := prod.Cmp(max64) <= 0; fits != (err == nil) || (fits && got != prod.Uint64()) {
				t.Errorf("Mul64(%#x, %#x) = %#x, %v", a, b, got, err)
			}

			if a > math.MaxUint32 || b > math.MaxUint32 {
				continue
			}
			got32, err := Add32(uint32(a), uint32(b))
			if fits := sum.Cmp(max32) <= 0; fits != (err == nil) || (fits && uint64(got32) != sum.Uint64()) {
				t.Errorf("Add32(%#x, %#x) = %#x, %v", a, b, got32, err)
			}
			got32, err = Mul32(uint32(a), uint32(b))
			if fits := prod.Cmp(max32) <= 0; fits != (err == nil) || (fits && uint64(got32) != prod.Uint64()) {
				t.Errorf("Mul32(%#x, %#x) = %#x, %v", a, b, got32, err)
			}
		}
	}
}

func TestEnd32(t *testing.T) {
	if end, err := End32(8, 16, 24); err != nil || end != 24 {
		t.Errorf("End32(8, 16, 24) = %d, %v; want 24, nil", end, err)
	}
	if _, err := End32(8, 17, 24); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("End32(8, 17, 24) error = %v; want ErrOutOfBounds", err)
	}
	if _, err := End32(math.MaxUint32, 1, math.MaxUint32); !errors.Is(err, ErrOverflow) {
		t.Errorf("End32(max, 1, max) error = %v; want ErrOverflow", err)
	}
	if _, err := End64(math.MaxUint64, 2, math.MaxUint64); !errors.Is(err, ErrOverflow) {
		t.Errorf("End64(max, 2, max) error = %v; want ErrOverflow", err)
	}
}
