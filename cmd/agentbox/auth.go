package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manifoldco/promptui"

	"github.com/agentbox/agentbox-go/internal/output"
	"github.com/agentbox/agentbox-go/internal/session"
	"github.com/agentbox/agentbox-go/sandbox"
)

type authCommand struct {
	Login  authLoginCommand  `command:"login" description:"Log in with an access token"`
	Logout authLogoutCommand `command:"logout" description:"Remove the saved session"`
	Info   authInfoCommand   `command:"info" description:"Show the current session"`
}

type authLoginCommand struct {
	Token string `long:"token" description:"Access token, prompted for when omitted"`
	Team  string `long:"team" description:"Default team ID for template commands"`
}

func (c *authLoginCommand) Execute(args []string) error {
	applyGlobalOptions()
	cc, err := loadClientContext()
	if err != nil {
		return err
	}

	token, team := c.Token, c.Team
	if token == "" {
		if !output.IsInteractive() {
			return errors.New("no terminal to prompt for the access token, pass --token")
		}
		if token, err = output.ReadSecret("Access token"); err != nil {
			return err
		}
		if team == "" {
			if team, err = promptTeam(cc.env.TeamID); err != nil {
				return err
			}
		}
	}

	domain := firstNonEmpty(root.Domain, cc.env.Domain, sandbox.DefaultDomain)
	client, err := sandbox.NewClient(&sandbox.Config{
		AccessToken: token,
		Domain:      domain,
		Endpoint:    cc.env.APIURL,
		Debug:       root.Debug || cc.env.Debug,
	})
	if err != nil {
		return err
	}
	params := &sandbox.ListTemplatesParams{}
	if team != "" {
		params.TeamID = &team
	}
	if _, err = client.ListTemplates(rootCtx, params); err != nil {
		return fmt.Errorf("failed to verify access token: %w", err)
	}

	sess := &session.Session{
		AccessToken: token,
		TeamID:      team,
		Domain:      domain,
		LoggedInAt:  time.Now().UTC(),
	}
	if err = session.Save(cc.configDir, sess); err != nil {
		return err
	}
	logger.Success("Logged in to %s, session saved to %s", domain, session.Path(cc.configDir))
	return nil
}

// promptTeam 询问默认团队，可以留空。
func promptTeam(defaultTeam string) (string, error) {
	prompt := promptui.Prompt{
		Label:   "Team ID (optional)",
		Default: defaultTeam,
		Validate: func(input string) error {
			if strings.ContainsAny(input, " \t/") {
				return errors.New("team ID cannot contain spaces or slashes")
			}
			return nil
		},
	}
	team, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", errors.New("cancelled")
		}
		return "", err
	}
	return strings.TrimSpace(team), nil
}

type authLogoutCommand struct{}

func (c *authLogoutCommand) Execute(args []string) error {
	applyGlobalOptions()
	cc, err := loadClientContext()
	if err != nil {
		return err
	}
	if err = session.Delete(cc.configDir); err != nil {
		return err
	}
	logger.Success("Logged out")
	return nil
}

type authInfoCommand struct{}

func (c *authInfoCommand) Execute(args []string) error {
	applyGlobalOptions()
	cc, err := loadClientContext()
	if err != nil {
		return err
	}

	switch {
	case cc.env.AccessToken != "":
		logger.Info("Access token: %s (AGENTBOX_ACCESS_TOKEN)", output.MaskToken(cc.env.AccessToken))
	case cc.session != nil:
		logger.Info("Access token: %s (%s)", output.MaskToken(cc.session.AccessToken), session.Path(cc.configDir))
		logger.Info("Logged in:    %s", cc.session.LoggedInAt.Local().Format(time.RFC3339))
	}
	if cc.env.APIKey != "" {
		logger.Info("API key:      %s (AGENTBOX_API_KEY)", output.MaskToken(cc.env.APIKey))
	}
	if cc.env.AccessToken == "" && cc.session == nil && cc.env.APIKey == "" {
		return session.ErrNotLoggedIn
	}

	domain := root.Domain
	if domain == "" {
		if cfg, err := cc.clientConfig(); err == nil {
			domain = cfg.Domain
		}
	}
	logger.Info("Domain:       %s", firstNonEmpty(domain, sandbox.DefaultDomain))
	if team := cc.teamID(); team != "" {
		logger.Info("Team:         %s", team)
	}
	return nil
}
