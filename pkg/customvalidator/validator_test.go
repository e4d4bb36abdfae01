package customvalidator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Bot      string `validate:"omitempty,bot_username"`
	Endpoint string `validate:"omitempty,push_endpoint"`
}

func TestRegisterCustomValidations(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterCustomValidations(v))

	cases := []struct {
		name  string
		in    sample
		valid bool
	}{
		{"пусто", sample{}, true},
		{"имя бота", sample{Bot: "taskly_bot"}, true},
		{"имя бота в верхнем регистре", sample{Bot: "TasklyBot"}, true},
		{"без суффикса bot", sample{Bot: "taskly"}, false},
		{"короткое имя", sample{Bot: "bot"}, false},
		{"с собакой", sample{Bot: "@taskly_bot"}, false},
		{"https endpoint", sample{Endpoint: "https://fcm.googleapis.com/fcm/send/abc"}, true},
		{"http endpoint", sample{Endpoint: "http://push.example/1"}, false},
		{"мусор", sample{Endpoint: "::not a url"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.in)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
