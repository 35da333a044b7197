package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{name: "simple", uri: "gs://bucket/tx.db", wantBucket: "bucket", wantObject: "tx.db"},
		{name: "nested", uri: "gs://bucket/backups/2024/tx.db", wantBucket: "bucket", wantObject: "backups/2024/tx.db"},
		{name: "no scheme", uri: "/tmp/tx.db", wantErr: true},
		{name: "bucket only", uri: "gs://bucket", wantErr: true},
		{name: "empty object", uri: "gs://bucket/", wantErr: true},
		{name: "trailing slash", uri: "gs://bucket/dir/", wantErr: true},
		{name: "empty bucket", uri: "gs:///tx.db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestObjectBase(t *testing.T) {
	assert.Equal(t, "tx.db", ObjectBase("gs://bucket/backups/tx.db"))
	assert.Equal(t, "tx.db", ObjectBase("gs://bucket/tx.db"))
	assert.Equal(t, "bucket", ObjectBase("gs://bucket"))
}

func TestNewClient_CredentialsOption(t *testing.T) {
	assert.Empty(t, NewClient("").opts)
	assert.Len(t, NewClient("/etc/creds.json").opts, 1)
}

func TestIsURI(t *testing.T) {
	assert.True(t, IsURI("gs://b/o"))
	assert.False(t, IsURI("backup.db"))
	assert.False(t, IsURI("GS://b/o"))
}
