package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vk/bracketflow/internal/validate"
)

// Config is the root of an editor config file.
//
//	league_id = "league-1"
//	canvas    = "manual"
//	backend { url = env("BRACKETFLOW_API", "http://localhost:8080/api") }
type Config struct {
	LeagueID string         `hcl:"league_id" validate:"required"`
	Canvas   string         `hcl:"canvas" validate:"required,oneof=manual automatic"`
	Backend  *BackendConfig `hcl:"backend,block"`
	Notify   *NotifyConfig  `hcl:"notify,block"`
	Save     *SaveConfig    `hcl:"save,block"`
}

// BackendConfig locates the league server.
type BackendConfig struct {
	URL     string `hcl:"url" validate:"required,url"`
	Timeout string `hcl:"timeout,optional" validate:"omitempty,duration"`
}

// NotifyConfig enables the socket.io notice channel.
type NotifyConfig struct {
	SocketIOURL        string `hcl:"socketio_url" validate:"required,url"`
	Namespace          string `hcl:"namespace,optional" validate:"omitempty,startswith=/"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
	ConnectTimeout     string `hcl:"connect_timeout,optional" validate:"omitempty,duration"`
}

// SaveConfig tunes the automatic canvas save.
type SaveConfig struct {
	Concurrency int `hcl:"concurrency,optional" validate:"gte=0,lte=64"`
}

// CanvasKind returns the parsed canvas.
func (c *Config) CanvasKind() validate.Canvas {
	canvas, err := validate.ParseCanvas(c.Canvas)
	if err != nil {
		// Validate rejects any other value.
		panic(err)
	}
	return canvas
}

// TimeoutDuration returns the request timeout, zero when unset.
func (b *BackendConfig) TimeoutDuration() time.Duration {
	return parseDuration(b.Timeout)
}

// ConnectTimeoutDuration returns the connect timeout, zero when unset.
func (n *NotifyConfig) ConnectTimeoutDuration() time.Duration {
	return parseDuration(n.ConnectTimeout)
}

// SaveConcurrency returns the configured save concurrency, zero when unset.
func (c *Config) SaveConcurrency() int {
	if c.Save == nil {
		return 0
	}
	return c.Save.Concurrency
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

var configValidate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), describeTag(fe)))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
