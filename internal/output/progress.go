package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Progress 多步骤操作的进度输出，格式为 [N/M] 描述...
type Progress struct {
	out     io.Writer
	total   int
	current int
	quiet   bool
}

// NewProgress 创建共 total 步的 Progress。
func NewProgress(total int) *Progress {
	return &Progress{
		out:   os.Stdout,
		total: total,
	}
}

// NewProgressTo 创建输出到 out 的 Progress。
func NewProgressTo(out io.Writer, total int) *Progress {
	return &Progress{out: out, total: total}
}

// SetQuiet 关闭输出。
func (p *Progress) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Stage 进入下一步并打印描述。
func (p *Progress) Stage(description string) {
	p.current++
	if p.quiet {
		return
	}
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(p.out, "[%d/%d] %s...\n", p.current, p.total, description)
}

// Detail 打印当前步骤下的一行细节。
func (p *Progress) Detail(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "      "+format+"\n", args...)
}

// SetTotal 修改总步数。
func (p *Progress) SetTotal(total int) {
	p.total = total
}

// Current 返回当前步骤。
func (p *Progress) Current() int {
	return p.current
}

// Total 返回总步数。
func (p *Progress) Total() int {
	return p.total
}

// Done 打印完成消息。
func (p *Progress) Done(message string) {
	if p.quiet {
		return
	}
	green := color.New(color.FgGreen)
	green.Fprintf(p.out, "\n✓ %s\n", message)
}
