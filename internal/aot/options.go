package aot

import (
	"fmt"
	"slices"
	"strings"

	"ngbuild/internal/diag"
)

var knownAngularOptions = map[string]bool{
	"annotateForClosureCompiler":         true,
	"compilationMode":                    true,
	"disableTypeScriptVersionCheck":      true,
	"enableBlockSyntax":                  true,
	"enableI18nLegacyMessageIdFormat":    true,
	"enableResourceInlining":             true,
	"extendedDiagnostics":                true,
	"fullTemplateTypeCheck":              true,
	"i18nInFile":                         true,
	"i18nInFormat":                       true,
	"i18nInLocale":                       true,
	"i18nNormalizeLineEndingsInICUs":     true,
	"i18nUseExternalIds":                 true,
	"preserveWhitespaces":                true,
	"strictInjectionParameters":          true,
	"strictInputAccessModifiers":         true,
	"strictStandalone":                   true,
	"strictTemplates":                    true,
	"_enableTemplateTypeChecker":         true,
	"_extendedTemplateDiagnostics":       true,
	"sourceMap":                          true,
	"allowEmptyCodegenFiles":             true,
	"generateDeepReexports":              true,
	"enableIvy":                          true,
	"supportTestBed":                     true,
	"supportJitMode":                     true,
	"_checkTwoWayBoundEvents":            true,
	"_enableLetSyntax":                   true,
	"_angularCoreVersion":                true,
	"onlyExplicitDeferDependencyImports": true,
}

var compilationModes = []string{"full", "partial", "experimental-local"}

// structuralDiagnostics validates angularCompilerOptions.
func structuralDiagnostics(configPath string, angular map[string]any) []diag.Diagnostic {
	keys := make([]string, 0, len(angular))
	for k := range angular {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	loc := &diag.Location{File: configPath}
	var out []diag.Diagnostic
	for _, k := range keys {
		if !knownAngularOptions[k] {
			out = append(out, diag.NewWarning(diag.CfgUnknownOption, loc,
				fmt.Sprintf("Unknown angularCompilerOptions option '%s'.", k)))
			continue
		}
		if k != "compilationMode" {
			continue
		}
		if mode, ok := angular[k].(string); !ok || !slices.Contains(compilationModes, mode) {
			out = append(out, diag.NewError(diag.CfgInvalidOptionType, loc,
				fmt.Sprintf("Option 'compilationMode' must be one of %s.", strings.Join(compilationModes, ", "))))
		}
	}
	return out
}
