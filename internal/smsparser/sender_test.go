package smsparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFinancialSender(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   bool
	}{
		{
			name:   "bare bank code",
			sender: "HDFCBK",
			want:   true,
		},
		{
			name:   "bank code with DLT prefix",
			sender: "VM-HDFCBK",
			want:   true,
		},
		{
			name:   "lowercase bank code",
			sender: "vm-hdfcbk",
			want:   true,
		},
		{
			name:   "BANK substring",
			sender: "MYBANK",
			want:   true,
		},
		{
			name:   "DLT sender shape without known code",
			sender: "AD-QP123456",
			want:   true,
		},
		{
			name:   "full DLT identifier",
			sender: "VM-HDFCBK123456",
			want:   true,
		},
		{
			name:   "phone number",
			sender: "+919876543210",
			want:   false,
		},
		{
			name:   "promotional sender",
			sender: "FLIPKART",
			want:   false,
		},
		{
			name:   "empty sender",
			sender: "",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFinancialSender(tt.sender))
		})
	}
}
