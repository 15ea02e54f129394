package core

import (
	"bytes"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	_, parseErr := strconv.Atoi("four")
	err := error(&ConfigError{Key: "samples", Value: "four", Err: parseErr})

	assert.Equal(t, `invalid value "four" for samples: `+parseErr.Error(), err.Error())
	assert.ErrorIs(t, err, strconv.ErrSyntax)

	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "samples", cfgErr.Key)
}

func TestGeometryError(t *testing.T) {
	err := error(&GeometryError{Primitive: "Sphere", Reason: "invalid radius 0"})
	assert.Equal(t, "Sphere: invalid radius 0", err.Error())
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, "render").Printf("%d units", 3)
	assert.Contains(t, buf.String(), "[render] 3 units")

	buf.Reset()
	NewWriterLogger(&buf, "").Printf("plain")
	assert.NotContains(t, buf.String(), "[")
	assert.Contains(t, buf.String(), "plain")

	assert.NotPanics(t, func() { NopLogger{}.Printf("ignored %d", 1) })
}
