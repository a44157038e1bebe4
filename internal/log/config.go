package log

import "path/filepath"

// DefaultLogDir and the file names below give GetLogger something to fall
// back to when no seelog config is supplied; callers that want a different
// location pass their own config string to GetLogger instead.
const (
	DefaultLogDir = "/var/log/sp"
	LogFile       = "sp.log"
	ErrorFile     = "sp-error.log"
)

// DefaultConfig returns a seelog XML document logging to console plus
// rolling files.
func DefaultConfig() []byte {
	return LoadConfig(DefaultLogDir, LogFile)
}

// LoadConfig builds a seelog config rooted at dir, with logFile taking
// info-and-above and ErrorFile taking a filtered copy of error/critical.
func LoadConfig(dir, logFile string) []byte {
	logPath := filepath.Join(dir, logFile)
	errPath := filepath.Join(dir, ErrorFile)

	cfg := `
<seelog type="adaptive" mininterval="2000000" maxinterval="100000000" critmsgcount="500" minlevel="info">
    <outputs formatid="fmtinfo">
        <console formatid="fmtinfo"/>
        <rollingfile type="size" filename="` + logPath + `" maxsize="10000000" maxrolls="5"/>
        <filter levels="error,critical" formatid="fmterror">
            <rollingfile type="size" filename="` + errPath + `" maxsize="10000000" maxrolls="5"/>
        </filter>
    </outputs>
    <formats>
        <format id="fmterror" format="%Date %Time %LEVEL [%FuncShort @ %File.%Line] %Msg%n"/>
        <format id="fmtinfo" format="%Date %Time %LEVEL %Msg%n"/>
    </formats>
</seelog>
`
	return []byte(cfg)
}
