package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"docflow/internal/actor"
	"docflow/internal/config"
	"docflow/internal/logging"
	"docflow/internal/store"
	"docflow/internal/workflow"
)

type commandContext struct {
	configFlag   *string
	jsonFlag     *bool
	roleFlag     *string
	identityFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool, roleFlag, identityFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		jsonFlag:     jsonFlag,
		roleFlag:     roleFlag,
		identityFlag: identityFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withEngine opens the workflow store for the duration of one command and
// hands the caller an engine bounded by the configured operation timeout.
func (c *commandContext) withEngine(cmd *cobra.Command, fn func(context.Context, *workflow.Engine) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open workflow store: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Engine.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Engine.OperationTimeout)*time.Second)
		defer cancel()
	}
	return fn(ctx, workflow.New(st, logging.NewNop()))
}

// actorValue resolves the --role and --as flags into an engine actor. Role
// aliases fold to canonical values here.
func (c *commandContext) actorValue() (workflow.Actor, error) {
	raw := ""
	if c.roleFlag != nil {
		raw = strings.TrimSpace(*c.roleFlag)
	}
	if raw == "" {
		return workflow.Actor{}, errors.New("--role is required (one of: " + roleList() + ")")
	}
	role, ok := actor.Parse(raw)
	if !ok {
		return workflow.Actor{}, fmt.Errorf("unknown role %q (one of: %s)", raw, roleList())
	}

	identity := ""
	if c.identityFlag != nil {
		identity = strings.TrimSpace(*c.identityFlag)
	}
	if identity == "" {
		identity = os.Getenv("USER")
	}
	return workflow.Actor{Role: role, Identity: identity}, nil
}

func (c *commandContext) jsonEnabled() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func roleList() string {
	roles := actor.All()
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return strings.Join(names, ", ")
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
