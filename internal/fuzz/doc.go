
// Package fuzztests houses Go fuzz harnesses for the input parsers of the
// build: TypeScript syntax extraction, component templates and tsconfig
// files. They guard against panics and hangs on arbitrary inputs.
//
// Назначение: прогонять произвольные байты через парсеры программы,
// шаблонов и tsconfig.
//
// Не делает: генерацию корпусов, бандлинг, запись файлов.
//
// Зависимости: internal/program, internal/template, internal/tsconfig,
// internal/source.

package fuzztests
