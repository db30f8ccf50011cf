package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Директивы
	DirInfo            Code = 1000
	DirMalformedImport Code = 1001
	DirExpectAlias     Code = 1002
	DirExpectSymbols   Code = 1003
	DirBadImportPath   Code = 1004

	// Разрешение импортов
	ResInfo           Code = 2000
	ResModuleNotFound Code = 2001
	ResSymbolNotFound Code = 2002
	ResCyclicImport   Code = 2003
	ResNameCollision  Code = 2004

	// WGSL scanning
	WgslInfo              Code = 3000
	WgslUnclosedComment   Code = 3001
	WgslUnclosedDelimiter Code = 3002
	WgslDuplicateDecl     Code = 3003
	WgslUnknownType       Code = 3004
	WgslRuntimeArrayPos   Code = 3005
	WgslUnexpectedToken   Code = 3006

	// Ошибки I/O
	IOLoadFileError  Code = 4001
	IOWriteFileError Code = 4002
	IOCacheError     Code = 4003

	// Ошибки проекта / DAG
	ProjInfo             Code = 5000
	ProjDuplicateModule  Code = 5001
	ProjMissingModule    Code = 5002
	ProjSelfImport       Code = 5003
	ProjImportCycle      Code = 5004
	ProjInvalidManifest  Code = 5005
	ProjDependencyFailed Code = 5006
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	DirInfo:               "Directive information",
	DirMalformedImport:    "Malformed import directive",
	DirExpectAlias:        "Expected alias after 'as'",
	DirExpectSymbols:      "Expected symbol list",
	DirBadImportPath:      "Invalid import path",
	ResInfo:               "Resolution information",
	ResModuleNotFound:     "Module not found",
	ResSymbolNotFound:     "Symbol not found",
	ResCyclicImport:       "Cyclic import",
	ResNameCollision:      "Name collision",
	WgslInfo:              "WGSL information",
	WgslUnclosedComment:   "Unclosed block comment",
	WgslUnclosedDelimiter: "Unclosed delimiter",
	WgslDuplicateDecl:     "Duplicate declaration",
	WgslUnknownType:       "Unknown type",
	WgslRuntimeArrayPos:   "Runtime-sized array must be the last member",
	WgslUnexpectedToken:   "Unexpected token",
	IOLoadFileError:       "Failed to load file",
	IOWriteFileError:      "Failed to write file",
	IOCacheError:          "Cache failure",
	ProjInfo:              "Project information",
	ProjDuplicateModule:   "Duplicate module",
	ProjMissingModule:     "Missing module",
	ProjSelfImport:        "Module imports itself",
	ProjImportCycle:       "Import cycle",
	ProjInvalidManifest:   "Invalid manifest",
	ProjDependencyFailed:  "Dependency failed",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("DIR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("WGS%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
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
