package aws

import (
	"context"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretsAPI struct {
	values map[string]*string
	calls  int
}

func (f *fakeSecretsAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	return &secretsmanager.GetSecretValueOutput{SecretString: f.values[*in.SecretId]}, nil
}

func TestSecretsClient_CachesUntilTTL(t *testing.T) {
	api := &fakeSecretsAPI{values: map[string]*string{
		"db": sdkaws.String(`{"POSTGRES_USER":"rds"}`),
	}}
	s := newSecretsClient(api, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	got, err := s.GetJSON(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, "rds", got["POSTGRES_USER"])

	_, err = s.GetSecret(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)

	now = now.Add(2 * time.Minute)
	_, err = s.GetSecret(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls)
}

func TestSecretsClient_RejectsNonStringAndNonJSON(t *testing.T) {
	api := &fakeSecretsAPI{values: map[string]*string{"plain": sdkaws.String("hunter2")}}
	s := newSecretsClient(api, time.Minute)

	_, err := s.GetSecret(context.Background(), "binary")
	assert.ErrorContains(t, err, "binary")

	_, err = s.GetJSON(context.Background(), "plain")
	assert.ErrorContains(t, err, "not a JSON object")
}
