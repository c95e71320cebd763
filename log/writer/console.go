package writer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Console 创建输出到标准输出的控制台 writer
func Console() zerolog.ConsoleWriter {
	return ConsoleTo(os.Stdout)
}

// ConsoleTo 创建输出到 out 的控制台 writer，非终端输出时关闭颜色
func ConsoleTo(out io.Writer) zerolog.ConsoleWriter {
	_, isFile := out.(*os.File)
	return zerolog.ConsoleWriter{
		Out:         out,
		NoColor:     !isFile,
		TimeFormat:  time.DateTime,
		FormatLevel: formatLevel,
	}
}

func formatLevel(i any) string {
	return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
}
