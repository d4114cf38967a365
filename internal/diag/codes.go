package diag

import (
	"fmt"
	"strconv"
	"strings"
)

type Code uint16

const (
	UnknownCode Code = 0

	// конфигурация (tsconfig, ngbuild.toml)
	CfgInfo              Code = 1000
	CfgUnreadable        Code = 1001
	CfgInvalidJSON       Code = 1002
	CfgExtendsCycle      Code = 1003
	CfgNoInputs          Code = 1004
	CfgUnknownOption     Code = 1005
	CfgOptionOverridden  Code = 1006
	CfgInvalidOptionType Code = 1007

	// синтаксис TypeScript
	SynInfo          Code = 2000
	SynUnexpected    Code = 2001
	SynMissing       Code = 2002
	SynUnterminated  Code = 2003
	SynDecoratorArgs Code = 2004

	// семантика программы
	SemInfo             Code = 3000
	SemCannotFindModule Code = 3001
	SemDuplicateSymbol  Code = 3002

	// шаблоны и компоненты
	TplInfo                  Code = 4000
	TplParseError            Code = 4001
	TplUnclosedInterpolation Code = 4002
	TplUnknownIdentifier     Code = 4003
	TplMissingResource       Code = 4004
	TplStrayEndTag           Code = 4005
	TplMissingTemplate       Code = 4006

	// загрузка файлов бандлером
	IOInfo               Code = 5000
	IOLoadFileError      Code = 5001
	IOMissingFromProgram Code = 5002
	IOTransformFailed    Code = 5003

	// сборка, воркеры, мост
	BldInfo             Code = 6000
	BldStylesheetFailed Code = 6001
	BldWebWorkerFailed  Code = 6002
	BldEmitFailed       Code = 6003
	BldSetupWarning     Code = 6004
	BldWorkerFailed     Code = 6005
)

var codeDescription = map[Code]string{
	UnknownCode:               "Unknown error",
	CfgInfo:                   "Configuration information",
	CfgUnreadable:             "Cannot read configuration file",
	CfgInvalidJSON:            "Invalid configuration syntax",
	CfgExtendsCycle:           "Circular 'extends' in configuration",
	CfgNoInputs:               "No inputs were found in config file",
	CfgUnknownOption:          "Unknown compiler option",
	CfgOptionOverridden:       "Compiler option is overridden by the build",
	CfgInvalidOptionType:      "Compiler option has an invalid value",
	SynInfo:                   "Syntax information",
	SynUnexpected:             "Unexpected token",
	SynMissing:                "Missing token",
	SynUnterminated:           "Unterminated construct",
	SynDecoratorArgs:          "Decorator argument must be an object literal",
	SemInfo:                   "Semantic information",
	SemCannotFindModule:       "Cannot find module",
	SemDuplicateSymbol:        "Duplicate identifier",
	TplInfo:                   "Template information",
	TplParseError:             "Template parse error",
	TplUnclosedInterpolation:  "Unterminated interpolation",
	TplUnknownIdentifier:      "Property does not exist on component",
	TplMissingResource:        "Component resource not found",
	TplStrayEndTag:            "Unexpected closing tag",
	TplMissingTemplate:        "Component has no template",
	IOInfo:                    "Load information",
	IOLoadFileError:           "I/O load file error",
	IOMissingFromProgram:      "File is missing from the TypeScript compilation",
	IOTransformFailed:         "JavaScript transform failed",
	BldInfo:                   "Build information",
	BldStylesheetFailed:       "Stylesheet transform failed",
	BldWebWorkerFailed:        "Web worker processing failed",
	BldEmitFailed:             "Emit failed",
	BldSetupWarning:           "Build setup warning",
	BldWorkerFailed:           "Compilation worker failed",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("TPL%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("BLD%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

var idPrefixes = []struct {
	prefix string
	base   int
}{
	{"CFG", 1000}, {"SYN", 2000}, {"SEM", 3000}, {"TPL", 4000}, {"IO", 5000}, {"BLD", 6000},
}

// ParseCode is the inverse of ID. Identifiers that do not name a code of
// their range yield UnknownCode and false.
func ParseCode(id string) (Code, bool) {
	for _, p := range idPrefixes {
		digits, ok := strings.CutPrefix(id, p.prefix)
		if !ok || len(digits) != 4 {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < p.base || n >= p.base+1000 {
			return UnknownCode, false
		}
		return Code(n), true
	}
	return UnknownCode, false
}
