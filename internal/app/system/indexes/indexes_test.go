package indexes

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestKeySig(t *testing.T) {
	tests := []struct {
		name string
		keys bson.D
		want string
	}{
		{"single asc", bson.D{{Key: "email_ci", Value: 1}}, "email_ci:1"},
		{"compound", bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}}, "group_id:1, created_at:-1"},
		{"empty", bson.D{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keySig(tt.keys); got != tt.want {
				t.Errorf("keySig() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSameBoolPtr(t *testing.T) {
	tr := true
	fa := false
	tests := []struct {
		name string
		a, b *bool
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs false", nil, &fa, true},
		{"nil vs true", nil, &tr, false},
		{"true vs true", &tr, &tr, true},
		{"true vs false", &tr, &fa, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameBoolPtr(tt.a, tt.b); got != tt.want {
				t.Errorf("sameBoolPtr() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDuplicateKeyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("connection reset"), false},
		{"E11000 text", errors.New("E11000 duplicate key error collection"), true},
		{"lowercase text", errors.New("duplicate key violation"), true},
		{"command error 11000", mongo.CommandError{Code: 11000}, true},
		{"command error other", mongo.CommandError{Code: 20}, false},
		{"write exception", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateKeyErr(tt.err); got != tt.want {
				t.Errorf("isDuplicateKeyErr() = %v, want %v", got, tt.want)
			}
		})
	}
}
