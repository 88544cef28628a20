package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger 命令行的彩色输出
type Logger struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
	verbose bool
	quiet   bool
}

// NewLogger 创建输出到 stdout/stderr 的 Logger。
func NewLogger() *Logger {
	return &Logger{
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// NewLoggerTo 创建输出到指定 writer 的 Logger。
func NewLoggerTo(out, errOut io.Writer) *Logger {
	return &Logger{out: out, errOut: errOut}
}

// SetNoColor 关闭颜色。
func (l *Logger) SetNoColor(noColor bool) {
	l.noColor = noColor
	color.NoColor = noColor
}

// SetVerbose 打开 Debug 输出。
func (l *Logger) SetVerbose(verbose bool) {
	l.verbose = verbose
}

// SetQuiet 只保留错误和结构化输出，用于 --format json/yaml。
func (l *Logger) SetQuiet(quiet bool) {
	l.quiet = quiet
}

// Quiet 返回是否关闭了普通输出
func (l *Logger) Quiet() bool {
	return l.quiet
}

// Out 返回标准输出。
func (l *Logger) Out() io.Writer {
	return l.out
}

// Info 普通消息
func (l *Logger) Info(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Warn 黄色警告
func (l *Logger) Warn(format string, args ...interface{}) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(l.errOut, "Warning: "+format+"\n", args...)
}

// Error 红色错误
func (l *Logger) Error(format string, args ...interface{}) {
	red := color.New(color.FgRed)
	red.Fprintf(l.errOut, "Error: "+format+"\n", args...)
}

// Success 绿色的成功消息
func (l *Logger) Success(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	green := color.New(color.FgGreen)
	green.Fprintf(l.out, "✓ "+format+"\n", args...)
}

// Debug 仅在 verbose 时输出
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	gray := color.New(color.FgHiBlack)
	gray.Fprintf(l.errOut, "[DEBUG] "+format+"\n", args...)
}

// Bold 加粗
func (l *Logger) Bold(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	bold := color.New(color.Bold)
	bold.Fprintf(l.out, format+"\n", args...)
}

// Cyan 青色高亮
func (l *Logger) Cyan(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(l.out, format+"\n", args...)
}

// Faint 灰色，用于远端构建日志
func (l *Logger) Faint(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	faint := color.New(color.Faint)
	faint.Fprintf(l.out, format+"\n", args...)
}

// Println 不带颜色的一行
func (l *Logger) Println(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	fmt.Fprintf(l.out, format+"\n", args...)
}
