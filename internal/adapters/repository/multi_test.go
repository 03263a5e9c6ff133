package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
)

type fakeRepo struct {
	err   error
	calls int
}

func (f *fakeRepo) AddLicense(context.Context, *lcpdoc.License) error {
	f.calls++
	return f.err
}

func TestMultiRepository_PrimaryErrorIsReturned(t *testing.T) {
	primary := &fakeRepo{err: errors.New("disk full")}
	secondary := &fakeRepo{}
	multi := NewMultiRepository(primary, secondary)

	lic, err := lcpdoc.ParseLicense([]byte(sampleLicenseJSON))
	require.NoError(t, err)

	err = multi.AddLicense(context.Background(), lic)
	assert.ErrorIs(t, err, primary.err)
	assert.Equal(t, 1, secondary.calls)
}

func TestMultiRepository_SecondaryErrorIsSwallowed(t *testing.T) {
	primary := &fakeRepo{}
	secondary := &fakeRepo{err: errors.New("s3 unavailable")}
	multi := NewMultiRepository(primary, secondary)

	lic, err := lcpdoc.ParseLicense([]byte(sampleLicenseJSON))
	require.NoError(t, err)

	assert.NoError(t, multi.AddLicense(context.Background(), lic))
}
