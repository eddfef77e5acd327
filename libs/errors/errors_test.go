package errors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	errutil "github.com/brave-intl/momo-go/libs/errors"
	testutils "github.com/brave-intl/momo-go/libs/test"
)

type customErr struct{}

func (ce *customErr) Error() string {
	return "custom error"
}

func TestMultiError_IsAs(t *testing.T) {
	var (
		err1b = errors.New("error 1b")
		err1a = fmt.Errorf("error 1a: %w", err1b)
		err1  = fmt.Errorf("error 1: %w", err1a)
		err2  = errors.New("error 2")
		err3  = &customErr{}
	)
	merr := &errutil.MultiError{}
	merr.Append(err1, err2, err3)

	var myCustomErr *customErr
	assert.True(t, errors.As(merr, &myCustomErr))
	assert.ErrorIs(t, merr, err1)
	assert.ErrorIs(t, merr, err1a)
	assert.ErrorIs(t, merr, err1b)
	assert.ErrorIs(t, merr, err2)
	assert.NotErrorIs(t, merr, errors.New("error 2"))

	assert.Equal(t, 3, merr.Count())
	assert.Equal(t, "error 1: error 1a: error 1b; error 2; custom error", merr.Error())
}

func TestErrorBundle_Error(t *testing.T) {
	cause := errors.New("connection refused")

	assert.Equal(t, "token exchange: connection refused", errutil.Wrap(cause, "token exchange").Error())
	assert.Equal(t, "token exchange", errutil.New(nil, "token exchange", nil).Error())
}

func TestErrorBundle_DataToString_DataNil(t *testing.T) {
	err := errutil.Wrap(errors.New(testutils.RandomString()), testutils.RandomString())
	var actual *errutil.ErrorBundle
	errors.As(err, &actual)
	assert.Equal(t, "no error bundle data", actual.DataToString())
}

func TestErrorBundle_DataToString_MarshallError(t *testing.T) {
	unsupportedData := func() {}
	sut := errutil.New(errors.New(testutils.RandomString()), testutils.RandomString(), unsupportedData)

	var actual *errutil.ErrorBundle
	errors.As(sut, &actual)

	assert.Contains(t, actual.DataToString(), "error retrieving error bundle data")
}

func TestErrorBundle_DataToString(t *testing.T) {
	errorData := testutils.RandomString()
	sut := errutil.New(errors.New(testutils.RandomString()), testutils.RandomString(), errorData)

	expected, err := json.Marshal(errorData)
	assert.NoError(t, err)

	var actual *errutil.ErrorBundle
	errors.As(sut, &actual)

	assert.Equal(t, string(expected), actual.DataToString())
}

func TestDataFrom(t *testing.T) {
	type tcGiven struct {
		err error
	}

	type tcExpected struct {
		data interface{}
		ok   bool
	}

	type testCase struct {
		name  string
		given tcGiven
		exp   tcExpected
	}

	tests := []testCase{
		{
			name:  "plain_error",
			given: tcGiven{err: errors.New("plain")},
		},
		{
			name:  "bundle_without_data",
			given: tcGiven{err: errutil.Wrap(errors.New("plain"), "wrapped")},
		},
		{
			name: "bundle_with_data",
			given: tcGiven{
				err: errutil.New(errors.New("plain"), "wrapped", 42),
			},
			exp: tcExpected{data: 42, ok: true},
		},
		{
			name: "nested_bundle_with_data",
			given: tcGiven{
				err: errutil.Wrap(errutil.New(errors.New("plain"), "inner", "payload"), "outer"),
			},
			exp: tcExpected{data: "payload", ok: true},
		},
		{
			name: "fmt_wrapped_bundle",
			given: tcGiven{
				err: fmt.Errorf("context: %w", errutil.New(errors.New("plain"), "inner", "payload")),
			},
			exp: tcExpected{data: "payload", ok: true},
		},
	}

	for i := range tests {
		tc := tests[i]

		t.Run(tc.name, func(t *testing.T) {
			data, ok := errutil.DataFrom(tc.given.err)
			assert.Equal(t, tc.exp.ok, ok)
			assert.Equal(t, tc.exp.data, data)
		})
	}
}
