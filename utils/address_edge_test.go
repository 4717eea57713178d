package utils

import (
	"testing"
)

func TestChecksumAddress_EdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		want    string
		wantErr bool
	}{
		{name: "lower case", addr: "0xd9f7c12906af9fd2264967fc7d4faa8a08d09dfa", want: "0xD9F7C12906AF9fD2264967FC7d4faa8A08D09dFa"},
		{name: "already checksummed", addr: "0xD9F7C12906AF9fD2264967FC7d4faa8A08D09dFa", want: "0xD9F7C12906AF9fD2264967FC7d4faa8A08D09dFa"},
		{name: "zero address", addr: ZeroAddress, want: ZeroAddress},
		{name: "missing prefix", addr: "d9f7c12906af9fd2264967fc7d4faa8a08d09dfa", wantErr: true},
		{name: "whitespace", addr: " 0xd9f7c12906af9fd2264967fc7d4faa8a08d09dfa", wantErr: true},
		{name: "empty", addr: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChecksumAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ChecksumAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ChecksumAddress(%q) = %s, want %s", tt.addr, got, tt.want)
			}
		})
	}
}

func TestEqualAddresses_EdgeCases(t *testing.T) {
	lower := "0xd9f7c12906af9fd2264967fc7d4faa8a08d09dfa"
	mixed := "0xD9F7C12906AF9fD2264967FC7d4faa8A08D09dFa"

	if !EqualAddresses(lower, mixed) {
		t.Error("EqualAddresses() should ignore case")
	}
	if EqualAddresses(lower, ZeroAddress) {
		t.Error("EqualAddresses() different addresses reported equal")
	}
	if EqualAddresses("", "") {
		t.Error("EqualAddresses() empty strings must not be equal")
	}
	if EqualAddresses(lower[2:], lower) {
		t.Error("EqualAddresses() must reject unprefixed input")
	}
}
