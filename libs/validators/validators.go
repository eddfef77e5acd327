package validators

import (
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
)

func init() {
	govalidator.TagMap["msisdn"] = govalidator.Validator(IsMSISDN)
	govalidator.TagMap["iso4217"] = govalidator.Validator(IsCurrencyCode)
	govalidator.TagMap["uuid4"] = govalidator.Validator(IsUUID)
	govalidator.CustomTypeTagMap.Set("requiredUUID", govalidator.CustomTypeValidator(IsRequiredUUID))
}

const (
	msisdn       string = "^[0-9]{10,15}$"
	currencyCode string = "^[A-Z]{3}$"
)

var (
	rxMSISDN       = regexp.MustCompile(msisdn)
	rxCurrencyCode = regexp.MustCompile(currencyCode)
)

// NormalizeMSISDN strips whitespace and a leading plus sign from a phone number
func NormalizeMSISDN(str string) string {
	str = strings.Join(strings.Fields(str), "")
	return strings.TrimPrefix(str, "+")
}

// IsMSISDN returns true if the string str is an international phone number of 10 to 15 digits
func IsMSISDN(str string) bool {
	return rxMSISDN.MatchString(str)
}

// IsCurrencyCode returns true if the string str is shaped like an ISO 4217 alphabetic code
func IsCurrencyCode(str string) bool {
	return rxCurrencyCode.MatchString(str)
}

// IsRequiredUUID checks if the uuid is present
func IsRequiredUUID(i interface{}, context interface{}) bool {
	switch v := i.(type) {
	case uuid.UUID:
		return v != uuid.Nil
	default:
		panic("invalid type recieved in IsRequiredUUID")
	}
}

// IsUUID checks if the string is a valid UUID
func IsUUID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}
