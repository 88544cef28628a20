package builder

import (
	"fmt"
	"strings"

	"github.com/agentbox/agentbox-go/sandbox"
)

// printUsage 打印构建成功后的使用示例。
func (b *Builder) printUsage(record *sandbox.BuildRecord, alias string) {
	b.logger.Println("")
	b.logger.Bold("Go SDK")
	for _, line := range strings.Split(goSnippet(record), "\n") {
		b.logger.Cyan("    %s", line)
	}
	b.logger.Println("")
	b.logger.Bold("CLI")
	for _, line := range strings.Split(cliSnippet(record, alias), "\n") {
		b.logger.Cyan("    %s", line)
	}
}

func goSnippet(record *sandbox.BuildRecord) string {
	return fmt.Sprintf(`client, err := sandbox.NewClient(&sandbox.Config{APIKey: os.Getenv("AGENTBOX_API_KEY")})
if err != nil {
	log.Fatal(err)
}
info, err := client.GetBuildStatus(ctx, %q, %q, sandbox.BuildStatusParams{})`,
		record.TemplateID, record.BuildID)
}

func cliSnippet(record *sandbox.BuildRecord, alias string) string {
	lines := []string{
		"# rebuild after changing the Dockerfile",
		"agentbox template build",
		"# list your templates",
		"agentbox template list",
	}
	if alias != "" {
		lines = append(lines, fmt.Sprintf("# template %s is also available as %q", record.TemplateID, alias))
	}
	return strings.Join(lines, "\n")
}
