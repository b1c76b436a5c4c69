package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/stellar/go/support/strutils"
)

// Options is a bindable list of command line options.
type Options []*Option

// Validate all the config options.
func (options Options) Validate() error {
	var missingOptions []errMissingRequiredOption
	for _, option := range options {
		if option.Validate != nil {
			err := option.Validate(option)
			if err == nil {
				continue
			}
			if missingOptionErr, ok := err.(errMissingRequiredOption); ok {
				missingOptions = append(missingOptions, missingOptionErr)
				continue
			}
			return fmt.Errorf("invalid config value for %s: %w", option.Name, err)
		}
	}
	if len(missingOptions) > 0 {
		errString := "the following required configuration parameters are missing:"
		for _, missingOpt := range missingOptions {
			errString += "\n*\t" + missingOpt.strErr
			errString += "\n \t" + missingOpt.usage
		}
		return fmt.Errorf("%s", errString)
	}
	return nil
}

// Option is a complete description of one configuration option: its
// command-line flag, environment variable, TOML key, default and validation.
type Option struct {
	Name           string
	EnvVar         string
	TomlKey        string
	Usage          string
	DefaultValue   interface{}
	ConfigKey      interface{}
	CustomSetValue func(*Option, interface{}) error
	Validate       func(*Option) error
	MarshalTOML    func(*Option) (interface{}, error)

	flag *pflag.Flag
}

// Returns false if this option is not parsed from the toml file.
func (o Option) getTomlKey() (string, bool) {
	if o.TomlKey == "-" || o.TomlKey == "_" {
		return "", false
	}
	if o.TomlKey != "" {
		return o.TomlKey, true
	}
	if envVar, ok := o.getEnvKey(); ok {
		return envVar, true
	}
	return strutils.KebabToConstantCase(o.Name), true
}

// Returns false if this option is not parsed from the environment.
func (o Option) getEnvKey() (string, bool) {
	if o.EnvVar == "-" || o.EnvVar == "_" {
		return "", false
	}
	if o.EnvVar != "" {
		return o.EnvVar, true
	}
	return strutils.KebabToConstantCase(o.Name), true
}

type errMissingRequiredOption struct {
	strErr string
	usage  string
}

func (e errMissingRequiredOption) Error() string {
	return e.strErr
}

func required(option *Option) error {
	switch reflect.ValueOf(option.ConfigKey).Elem().Kind() {
	case reflect.Slice:
		if reflect.ValueOf(option.ConfigKey).Elem().Len() > 0 {
			return nil
		}
	default:
		if !reflect.ValueOf(option.ConfigKey).Elem().IsZero() {
			return nil
		}
	}

	waysToSet := []string{}
	if option.Name != "" && option.Name != "-" {
		waysToSet = append(waysToSet, fmt.Sprintf("specify --%s on the command line", option.Name))
	}
	if envVar, ok := option.getEnvKey(); ok {
		waysToSet = append(waysToSet, fmt.Sprintf("set the %s environment variable", envVar))
	}
	if tomlKey, hasTomlKey := option.getTomlKey(); hasTomlKey {
		waysToSet = append(waysToSet, fmt.Sprintf("set %s in the config file", tomlKey))
	}

	advice := ""
	switch len(waysToSet) {
	case 1:
		advice = fmt.Sprintf(" Please %s.", waysToSet[0])
	case 2:
		advice = fmt.Sprintf(" Please %s or %s.", waysToSet[0], waysToSet[1])
	case 3:
		advice = fmt.Sprintf(" Please %s, %s, or %s.", waysToSet[0], waysToSet[1], waysToSet[2])
	}

	return errMissingRequiredOption{strErr: fmt.Sprintf("%s is required.%s", option.Name, advice), usage: option.Usage}
}

func positive(option *Option) error {
	switch v := option.ConfigKey.(type) {
	case *int, *int8, *int16, *int32, *int64:
		if reflect.ValueOf(option.ConfigKey).Elem().Int() <= 0 {
			return fmt.Errorf("%s must be positive", option.Name)
		}
	case *uint, *uint8, *uint16, *uint32, *uint64:
		if reflect.ValueOf(option.ConfigKey).Elem().Uint() <= 0 {
			return fmt.Errorf("%s must be positive", option.Name)
		}
	case *time.Duration:
		if *v <= 0 {
			return fmt.Errorf("%s must be positive", option.Name)
		}
	default:
		return fmt.Errorf("%s is not a positive integer", option.Name)
	}
	return nil
}

func (o *Option) setValue(i interface{}) (err error) {
	if o.CustomSetValue != nil {
		return o.CustomSetValue(o, i)
	}
	// it's unfortunate o.ConfigKey is an interface{}, because that means we
	// can't use noticeable static typing here
	parser := func(option *Option, i interface{}) error {
		return fmt.Errorf("no parser for flag %s", o.Name)
	}
	switch o.ConfigKey.(type) {
	case *bool:
		parser = parseBool
	case *int, *int8, *int16, *int32, *int64:
		parser = parseInt
	case *uint, *uint8, *uint16, *uint32, *uint64:
		parser = parseUint
	case *float32, *float64:
		parser = parseFloat
	case *string:
		parser = parseString
	case *[]string:
		parser = parseStringSlice
	case *time.Duration:
		parser = parseDuration
	}

	return parser(o, i)
}

func parseBool(option *Option, i interface{}) error {
	switch v := i.(type) {
	case nil:
		return nil
	case bool:
		*(option.ConfigKey.(*bool)) = v
	case string:
		lower, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("could not parse boolean %s: %w", option.Name, err)
		}
		*(option.ConfigKey.(*bool)) = lower
	default:
		return fmt.Errorf("could not parse boolean %s: %v", option.Name, i)
	}
	return nil
}

func parseInt(option *Option, i interface{}) error {
	switch v := i.(type) {
	case nil:
		return nil
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("could not parse int %s: %w", option.Name, err)
		}
		reflect.ValueOf(option.ConfigKey).Elem().SetInt(parsed)
	case int, int8, int16, int32, int64:
		reflect.ValueOf(option.ConfigKey).Elem().SetInt(reflect.ValueOf(v).Int())
	case uint, uint8, uint16, uint32, uint64:
		reflect.ValueOf(option.ConfigKey).Elem().SetInt(int64(reflect.ValueOf(v).Uint()))
	default:
		return fmt.Errorf("could not parse int %s: %v", option.Name, i)
	}
	return nil
}

func parseUint(option *Option, i interface{}) error {
	switch v := i.(type) {
	case nil:
		return nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("could not parse uint %s: %w", option.Name, err)
		}
		reflect.ValueOf(option.ConfigKey).Elem().SetUint(parsed)
	case int, int8, int16, int32, int64:
		parsed := reflect.ValueOf(v).Int()
		if parsed < 0 {
			return fmt.Errorf("could not parse uint %s: %v", option.Name, i)
		}
		reflect.ValueOf(option.ConfigKey).Elem().SetUint(uint64(parsed))
	case uint, uint8, uint16, uint32, uint64:
		reflect.ValueOf(option.ConfigKey).Elem().SetUint(reflect.ValueOf(v).Uint())
	default:
		return fmt.Errorf("could not parse uint %s: %v", option.Name, i)
	}
	return nil
}

func parseFloat(option *Option, i interface{}) error {
	switch v := i.(type) {
	case nil:
		return nil
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("could not parse float %s: %w", option.Name, err)
		}
		reflect.ValueOf(option.ConfigKey).Elem().SetFloat(parsed)
	case float32, float64:
		reflect.ValueOf(option.ConfigKey).Elem().SetFloat(reflect.ValueOf(v).Float())
	default:
		return fmt.Errorf("could not parse float %s: %v", option.Name, i)
	}
	return nil
}

func parseString(option *Option, i interface{}) error {
	switch v := i.(type) {
	case nil:
		return nil
	case string:
		*(option.ConfigKey.(*string)) = v
	default:
		return fmt.Errorf("could not parse string %s: %v", option.Name, i)
	}
	return nil
}

func parseStringSlice(option *Option, i interface{}) error {
	switch v := i.(type) {
	case nil:
		return nil
	case []string:
		*(option.ConfigKey.(*[]string)) = v
	case []interface{}:
		result := make([]string, len(v))
		for i, s := range v {
			switch s := s.(type) {
			case string:
				result[i] = s
			default:
				return fmt.Errorf("could not parse %s: %v", option.Name, v)
			}
		}
		*(option.ConfigKey.(*[]string)) = result
	default:
		return fmt.Errorf("could not parse string slice %s: %v", option.Name, i)
	}
	return nil
}

func parseDuration(option *Option, i interface{}) error {
	switch v := i.(type) {
	case nil:
		return nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("could not parse duration %s: %w", option.Name, err)
		}
		*(option.ConfigKey.(*time.Duration)) = d
	case time.Duration:
		*(option.ConfigKey.(*time.Duration)) = v
	case int, int8, int16, int32, int64:
		// bare numbers are milliseconds
		*(option.ConfigKey.(*time.Duration)) = time.Duration(reflect.ValueOf(v).Int()) * time.Millisecond
	default:
		return fmt.Errorf("%s is not a duration", option.Name)
	}
	return nil
}
