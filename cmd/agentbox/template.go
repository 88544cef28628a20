package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/manifoldco/promptui"
	"gopkg.in/yaml.v3"

	"github.com/agentbox/agentbox-go/internal/output"
	"github.com/agentbox/agentbox-go/sandbox"
	"github.com/agentbox/agentbox-go/template/builder"
)

type templateCommand struct {
	Build  templateBuildCommand  `command:"build" alias:"bd" description:"Build a template from a Dockerfile"`
	List   templateListCommand   `command:"list" alias:"ls" description:"List templates"`
	Delete templateDeleteCommand `command:"delete" alias:"rm" description:"Delete a template"`
}

type templateBuildCommand struct {
	Path         string        `short:"p" long:"path" default:"." description:"Root directory of the template project"`
	Dockerfile   string        `short:"d" long:"dockerfile" description:"Dockerfile path relative to --path (default agentbox.Dockerfile, then Dockerfile)"`
	Name         string        `short:"n" long:"name" description:"Template alias"`
	Cmd          string        `short:"c" long:"cmd" description:"Command executed when a sandbox starts"`
	Team         string        `long:"team" description:"Team ID"`
	Config       string        `long:"config" description:"Config file path relative to --path (default agentbox.toml)"`
	CPUCount     int32         `long:"cpu-count" description:"Number of CPUs"`
	MemoryMB     int32         `long:"memory-mb" description:"Memory in MiB, must be even"`
	BuildArgs    []string      `long:"build-arg" value-name:"KEY=VALUE" description:"Docker build argument, repeatable"`
	NoCache      bool          `long:"no-cache" description:"Build the image without docker cache"`
	Platform     string        `long:"platform" description:"Target platform: linux_x86, linux_arm or android"`
	BuildTimeout time.Duration `long:"build-timeout" default:"60m" description:"Maximum time to wait for the remote build, 0 waits forever"`

	Args struct {
		TemplateID string `positional-arg-name:"templateID"`
	} `positional-args:"yes"`
}

func (c *templateBuildCommand) Execute(args []string) error {
	applyGlobalOptions()
	buildArgs, err := parseBuildArgs(c.BuildArgs)
	if err != nil {
		return err
	}
	cc, err := loadClientContext()
	if err != nil {
		return err
	}
	client, err := cc.newClient()
	if err != nil {
		return err
	}

	_, err = builder.New(client, builder.WithLogger(logger)).Build(rootCtx, builder.Options{
		TemplateID:    c.Args.TemplateID,
		Path:          c.Path,
		ConfigPath:    c.Config,
		Dockerfile:    c.Dockerfile,
		Name:          c.Name,
		StartCmd:      c.Cmd,
		TeamID:        c.Team,
		CPUCount:      c.CPUCount,
		MemoryMB:      c.MemoryMB,
		BuildArgs:     buildArgs,
		NoCache:       c.NoCache,
		Platform:      c.Platform,
		EnvPlatform:   cc.env.Platform,
		DefaultTeamID: cc.teamID(),
		BuildTimeout:  c.BuildTimeout,
	})
	return err
}

// parseBuildArgs 解析 KEY=VALUE 形式的构建参数。
func parseBuildArgs(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	args := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --build-arg %q, expected KEY=VALUE", v)
		}
		args[key] = value
	}
	return args, nil
}

type templateListCommand struct {
	Team   string `long:"team" description:"Team ID"`
	Format string `short:"f" long:"format" default:"text" choice:"text" choice:"json" choice:"yaml" description:"Output format"`
}

type templateListItem struct {
	TemplateID string    `json:"templateID" yaml:"templateID"`
	Aliases    []string  `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	BuildID    string    `json:"buildID" yaml:"buildID"`
	Status     string    `json:"status,omitempty" yaml:"status,omitempty"`
	Platform   string    `json:"platform,omitempty" yaml:"platform,omitempty"`
	CPUCount   int32     `json:"cpuCount" yaml:"cpuCount"`
	MemoryMB   int32     `json:"memoryMB" yaml:"memoryMB"`
	Public     bool      `json:"public" yaml:"public"`
	SpawnCount int64     `json:"spawnCount" yaml:"spawnCount"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" yaml:"updatedAt"`
}

func (c *templateListCommand) Execute(args []string) error {
	applyGlobalOptions()
	if c.Format != "text" {
		logger.SetQuiet(true)
	}
	cc, err := loadClientContext()
	if err != nil {
		return err
	}
	client, err := cc.newClient()
	if err != nil {
		return err
	}

	params := &sandbox.ListTemplatesParams{}
	if team := firstNonEmpty(c.Team, cc.teamID()); team != "" {
		params.TeamID = &team
	}
	templates, err := client.ListTemplates(rootCtx, params)
	if err != nil {
		return err
	}
	return renderTemplates(logger.Out(), c.Format, templates)
}

func renderTemplates(w io.Writer, format string, templates []sandbox.Template) error {
	items := make([]templateListItem, len(templates))
	for i, t := range templates {
		items[i] = templateListItem{
			TemplateID: t.TemplateID,
			Aliases:    t.Aliases,
			BuildID:    t.BuildID,
			Status:     string(t.BuildStatus),
			Platform:   string(t.EnvironmentType),
			CPUCount:   t.CPUCount,
			MemoryMB:   t.MemoryMB,
			Public:     t.Public,
			SpawnCount: t.SpawnCount,
			CreatedAt:  t.CreatedAt,
			UpdatedAt:  t.UpdatedAt,
		}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(items) == 0 {
		fmt.Fprintln(w, "No templates found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMPLATE ID\tALIASES\tSTATUS\tPLATFORM\tCPU\tMEMORY\tUPDATED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d MiB\t%s\n",
			it.TemplateID, strings.Join(it.Aliases, ","), dash(it.Status), dash(it.Platform),
			it.CPUCount, it.MemoryMB, it.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type templateDeleteCommand struct {
	Yes bool `short:"y" long:"yes" description:"Skip the confirmation prompt"`

	Args struct {
		TemplateID string `positional-arg-name:"templateID" required:"yes"`
	} `positional-args:"yes"`
}

func (c *templateDeleteCommand) Execute(args []string) error {
	applyGlobalOptions()
	if !c.Yes {
		if !output.IsInteractive() {
			return errors.New("refusing to delete without confirmation, pass --yes")
		}
		ok, err := confirm(fmt.Sprintf("Delete template %s", c.Args.TemplateID))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("Aborted.")
			return nil
		}
	}

	cc, err := loadClientContext()
	if err != nil {
		return err
	}
	client, err := cc.newClient()
	if err != nil {
		return err
	}
	if err = client.DeleteTemplate(rootCtx, c.Args.TemplateID); err != nil {
		return err
	}
	logger.Success("Template %s deleted", c.Args.TemplateID)
	return nil
}

// confirm 弹出 y/N 确认提示。
func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return false, errors.New("cancelled")
		}
		return false, err
	}
	return true, nil
}
