package validation

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginInput(t *testing.T) {
	tests := []struct {
		name   string
		query  url.Values
		fields map[string][]string
	}{
		{
			name:  "valid",
			query: url.Values{"userid": {"1000"}, "pin": {"1234"}, "deviceid": {"abc123"}, "companyid": {"5"}},
		},
		{
			name:  "missing userid",
			query: url.Values{"pin": {"1234"}, "deviceid": {"abc123"}, "companyid": {"5"}},
			fields: map[string][]string{
				"userid": {"User ID cannot be empty"},
			},
		},
		{
			name:  "non numeric pin and non alnum device",
			query: url.Values{"userid": {"1000"}, "pin": {"12a"}, "deviceid": {"ab-12"}, "companyid": {"5"}},
			fields: map[string][]string{
				"pin":      {"User pin is an integer value"},
				"deviceid": {"Device ID is an alnum value"},
			},
		},
		{
			name:  "signed numbers",
			query: url.Values{"userid": {"+1000"}, "pin": {"-5"}, "deviceid": {"abc123"}, "companyid": {"5"}},
			fields: map[string][]string{
				"userid": {"User ID is an integer value"},
				"pin":    {"User pin is an integer value"},
			},
		},
		{
			name:  "bad verbos",
			query: url.Values{"userid": {"1000"}, "pin": {"1234"}, "deviceid": {"abc"}, "companyid": {"5"}, "verbos": {"maybe"}},
			fields: map[string][]string{
				"verbos": {"The input was not found in the haystack"},
			},
		},
		{
			name:  "markup is stripped before validation",
			query: url.Values{"userid": {" <b>1000</b> "}, "pin": {"1234"}, "deviceid": {"abc"}, "companyid": {"5"}},
		},
		{
			name:  "whitespace only company",
			query: url.Values{"userid": {"1000"}, "pin": {"1234"}, "deviceid": {"abc"}, "companyid": {"   "}},
			fields: map[string][]string{
				"companyid": {"Company ID cannot be empty"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := LoginFromQuery(tt.query)
			err := Validate(in)
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, Errors(tt.fields), Messages(err))
		})
	}
}

func TestLoginInputValues(t *testing.T) {
	in := LoginFromQuery(url.Values{"userid": {"<i>1000</i>"}, "companyid": {"42"}, "verbos": {"y"}})
	assert.Equal(t, "1000", in.UserID)
	assert.Equal(t, int64(42), in.Company())
	assert.True(t, in.Verbose())
}

func TestAuthSessionInputMessages(t *testing.T) {
	in := AuthSessionFromQuery(url.Values{
		"userid": {"1000"}, "pin": {"1234"}, "deviceid": {"a b"}, "companyid": {"5"}, "session": {"x-y"},
	})
	err := Validate(in)
	require.Error(t, err)

	msgs := Messages(err)
	assert.Equal(t, []string{"Device ID is an alnum"}, msgs["deviceid"])
	assert.Equal(t, []string{"Invalid session"}, msgs["session"])
	assert.Contains(t, err.Error(), "deviceid: Device ID is an alnum")
}

func TestAuthSessionInputValid(t *testing.T) {
	in := AuthSessionFromQuery(url.Values{
		"userid": {"1000"}, "pin": {"1234"}, "deviceid": {"ABC123xyz"}, "companyid": {"5"}, "session": {"a1b2c3"},
	})
	require.NoError(t, Validate(in))
}

func TestRegisterDeviceInput(t *testing.T) {
	in := RegisterDeviceFromQuery(url.Values{"userid": {"1000"}, "pin": {"1234"}, "companyid": {"99999999999999999999"}})
	err := Validate(in)
	require.Error(t, err)
	assert.Equal(t, []string{"Company ID is an integer value"}, Messages(err)["companyid"])
}

func TestRegisterDeviceInputSignedCompany(t *testing.T) {
	in := RegisterDeviceFromQuery(url.Values{"userid": {"1000"}, "pin": {"1234"}, "companyid": {"+5"}})
	err := Validate(in)
	require.Error(t, err)
	assert.Equal(t, Errors{"companyid": {"Company ID is an integer value"}}, Messages(err))
}
