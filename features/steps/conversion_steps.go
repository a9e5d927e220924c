//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"video2audio/internal/api"
	"video2audio/internal/config"
	"video2audio/internal/logging"
	"video2audio/internal/settings"
	"video2audio/internal/testsupport"
	"video2audio/internal/transcode"

	"github.com/cucumber/godog"
)

type conversionContext struct {
	tempDir  string
	cfg      *config.Config
	service  *api.Service
	result   transcode.Result
	deleted  []string
	applyErr error
	cancel   context.CancelFunc
}

var sharedConversionContext = &conversionContext{}

func InitializeConversionScenario(ctx *godog.ScenarioContext) {
	testCtx := sharedConversionContext

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.cancel != nil {
			testCtx.cancel()
		}
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		*testCtx = conversionContext{}
		return c, nil
	})

	ctx.Step(`^an empty workspace$`, testCtx.anEmptyWorkspace)
	ctx.Step(`^the incoming directory contains "([^"]*)"$`, testCtx.theIncomingDirectoryContains)
	ctx.Step(`^the outgoing directory contains "([^"]*)"$`, testCtx.theOutgoingDirectoryContains)
	ctx.Step(`^the settings are codec "([^"]*)" bitrate (\d+) sample rate (\d+) channels (\d+)$`, testCtx.theSettingsAre)
	ctx.Step(`^I apply codec "([^"]*)" bitrate (\d+) sample rate (\d+) channels (\d+)$`, testCtx.iApply)
	ctx.Step(`^I process "([^"]*)"$`, testCtx.iProcess)
	ctx.Step(`^I clear the outgoing directory$`, testCtx.iClearTheOutgoingDirectory)
	ctx.Step(`^I clear incoming "([^"]*)"$`, testCtx.iClearIncoming)
	ctx.Step(`^the outgoing directory should contain "([^"]*)"$`, testCtx.theOutgoingDirectoryShouldContain)
	ctx.Step(`^the incoming directory should contain "([^"]*)"$`, testCtx.theIncomingDirectoryShouldContain)
	ctx.Step(`^the incoming directory should be empty$`, testCtx.theIncomingDirectoryShouldBeEmpty)
	ctx.Step(`^the outgoing directory should be empty$`, testCtx.theOutgoingDirectoryShouldBeEmpty)
	ctx.Step(`^"([^"]*)" should have succeeded$`, testCtx.shouldHaveSucceeded)
	ctx.Step(`^"([^"]*)" should have failed$`, testCtx.shouldHaveFailed)
	ctx.Step(`^"([^"]*)" should have been deleted$`, testCtx.shouldHaveBeenDeleted)
	ctx.Step(`^the settings change should be rejected for "([^"]*)"$`, testCtx.theSettingsChangeShouldBeRejectedFor)
	ctx.Step(`^the current codec should be "([^"]*)"$`, testCtx.theCurrentCodecShouldBe)
}

func (c *conversionContext) anEmptyWorkspace() error {
	tempDir, err := os.MkdirTemp("", "video2audio-features-*")
	if err != nil {
		return err
	}
	c.tempDir = tempDir

	cfg := config.Default()
	cfg.Paths.IncomingDir = filepath.Join(tempDir, "incoming")
	cfg.Paths.OutgoingDir = filepath.Join(tempDir, "outgoing")
	cfg.Paths.LogDir = filepath.Join(tempDir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	c.cfg = &cfg

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	svc, err := api.New(runCtx, c.cfg, logging.NewNop(), api.WithEncoder(&testsupport.Encoder{FailOn: "broken"}))
	if err != nil {
		return err
	}
	c.service = svc
	return nil
}

func (c *conversionContext) theIncomingDirectoryContains(list string) error {
	return writeFiles(c.cfg.Paths.IncomingDir, splitNames(list))
}

func (c *conversionContext) theOutgoingDirectoryContains(list string) error {
	return writeFiles(c.cfg.Paths.OutgoingDir, splitNames(list))
}

func (c *conversionContext) theSettingsAre(codec string, bitrate, sampleRate, channels int) error {
	return c.service.ApplySettings(settings.Settings{
		Codec:      settings.Codec(codec),
		Bitrate:    bitrate,
		SampleRate: sampleRate,
		Channels:   channels,
	})
}

func (c *conversionContext) iApply(codec string, bitrate, sampleRate, channels int) error {
	c.applyErr = c.theSettingsAre(codec, bitrate, sampleRate, channels)
	return nil
}

func (c *conversionContext) iProcess(list string) error {
	c.result = c.service.Process(context.Background(), splitNames(list))
	return nil
}

func (c *conversionContext) iClearTheOutgoingDirectory() error {
	c.deleted = c.service.ClearOutgoing(context.Background())
	return nil
}

func (c *conversionContext) iClearIncoming(list string) error {
	c.deleted = c.service.ClearIncoming(context.Background(), splitNames(list))
	return nil
}

func (c *conversionContext) theOutgoingDirectoryShouldContain(list string) error {
	files, err := c.service.ListOutgoing()
	if err != nil {
		return err
	}
	return sameNames("outgoing", files, splitNames(list))
}

func (c *conversionContext) theIncomingDirectoryShouldContain(list string) error {
	files, err := c.service.ListIncoming()
	if err != nil {
		return err
	}
	return sameNames("incoming", files, splitNames(list))
}

func (c *conversionContext) theIncomingDirectoryShouldBeEmpty() error {
	files, err := c.service.ListIncoming()
	if err != nil {
		return err
	}
	return sameNames("incoming", files, nil)
}

func (c *conversionContext) theOutgoingDirectoryShouldBeEmpty() error {
	files, err := c.service.ListOutgoing()
	if err != nil {
		return err
	}
	return sameNames("outgoing", files, nil)
}

func (c *conversionContext) shouldHaveSucceeded(name string) error {
	return c.expectStatus(name, transcode.StatusSucceeded)
}

func (c *conversionContext) shouldHaveFailed(name string) error {
	return c.expectStatus(name, transcode.StatusFailed)
}

func (c *conversionContext) expectStatus(name string, want transcode.Status) error {
	outcome, ok := c.result.Outcome(name)
	if !ok {
		return fmt.Errorf("no outcome recorded for %q", name)
	}
	if outcome.Status != want {
		return fmt.Errorf("%s: expected %s, got %s (%s)", name, want, outcome.Status, outcome.Error)
	}
	return nil
}

func (c *conversionContext) shouldHaveBeenDeleted(list string) error {
	return sameNames("deleted", c.deleted, splitNames(list))
}

func (c *conversionContext) theSettingsChangeShouldBeRejectedFor(field string) error {
	var verr *settings.ValidationError
	if !errors.As(c.applyErr, &verr) {
		return fmt.Errorf("expected a validation error, got %v", c.applyErr)
	}
	if verr.Field != field {
		return fmt.Errorf("expected rejection of %s, got %s", field, verr.Field)
	}
	return nil
}

func (c *conversionContext) theCurrentCodecShouldBe(codec string) error {
	if got := c.service.Settings().Codec; string(got) != codec {
		return fmt.Errorf("expected codec %s, got %s", codec, got)
	}
	return nil
}

func splitNames(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func writeFiles(dir string, names []string) error {
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("video:"+name), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func sameNames(area string, got, want []string) error {
	got = append([]string(nil), got...)
	want = append([]string(nil), want...)
	sort.Strings(got)
	sort.Strings(want)
	if len(got) == 0 && len(want) == 0 {
		return nil
	}
	if !reflect.DeepEqual(got, want) {
		return fmt.Errorf("%s: expected %v, got %v", area, want, got)
	}
	return nil
}
