package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// featureManager rules
	FeatInfo                     Code = 1000
	FeatDuplicateFeature         Code = 1001
	FeatDuplicatePlatform        Code = 1002
	FeatVersionConflict          Code = 1003
	FeatPlatformVersionConflict  Code = 1004
	FeatPlatformFamilyConflict   Code = 1005
	FeatIncorrectFeature         Code = 1006
	FeatIncorrectPlatform        Code = 1007
	FeatMissingConfiguredFeature Code = 1008

	// <include> rules
	IncInfo                Code = 2000
	IncNotXMLOrDir         Code = 2001
	IncImplicitNotOptional Code = 2002
	IncNotOptional         Code = 2003
	IncMissingFile         Code = 2004
	IncIsFileNotDir        Code = 2005
	IncIsDirNotFile        Code = 2006

	// tool level problems
	IOInfo          Code = 3000
	IOLoadFileError Code = 3001
	IOCatalogLoad   Code = 3002
)

var (
	codeIDs = map[Code]string{
		UnknownCode:                  "unknown",
		FeatDuplicateFeature:         "duplicate_feature",
		FeatDuplicatePlatform:        "duplicate_platform",
		FeatVersionConflict:          "feature_version_conflict",
		FeatPlatformVersionConflict:  "platform_version_conflict",
		FeatPlatformFamilyConflict:   "platform_family_conflict",
		FeatIncorrectFeature:         "incorrect_feature",
		FeatIncorrectPlatform:        "incorrect_platform",
		FeatMissingConfiguredFeature: "missing_configured_feature",
		IncNotXMLOrDir:               "not_xml_or_dir",
		IncImplicitNotOptional:       "implicit_not_optional",
		IncNotOptional:               "not_optional",
		IncMissingFile:               "missing_file",
		IncIsFileNotDir:              "is_file_not_dir",
		IncIsDirNotFile:              "is_dir_not_file",
		IOLoadFileError:              "io_load_file",
		IOCatalogLoad:                "catalog_load",
	}

	codeDescription = map[Code]string{
		UnknownCode:                  "Unknown error",
		FeatInfo:                     "Feature information",
		FeatDuplicateFeature:         "Feature declared more than once",
		FeatDuplicatePlatform:        "Platform declared more than once",
		FeatVersionConflict:          "Several versions of one feature",
		FeatPlatformVersionConflict:  "Several versions of one platform",
		FeatPlatformFamilyConflict:   "Mutually exclusive platform families",
		FeatIncorrectFeature:         "Unknown feature",
		FeatIncorrectPlatform:        "Unknown platform",
		FeatMissingConfiguredFeature: "Config element without enabling feature",
		IncInfo:                      "Include information",
		IncNotXMLOrDir:               "Include is neither XML file nor directory",
		IncImplicitNotOptional:       "Missing include without optional attribute",
		IncNotOptional:               "Missing include marked not optional",
		IncMissingFile:               "Missing include",
		IncIsFileNotDir:              "Include directory is a file",
		IncIsDirNotFile:              "Include file is a directory",
		IOInfo:                       "I/O information",
		IOLoadFileError:              "Could not read file",
		IOCatalogLoad:                "Could not load feature catalog",
	}

	codeByID = func() map[string]Code {
		m := make(map[string]Code, len(codeIDs))
		for c, id := range codeIDs {
			m[id] = c
		}
		return m
	}()
)

// ID returns the stable identifier published to editors.
func (c Code) ID() string {
	if id, ok := codeIDs[c]; ok {
		return id
	}
	return fmt.Sprintf("E%04d", int(c))
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

// ParseCode maps a stable identifier back to its Code.
func ParseCode(id string) (Code, bool) {
	c, ok := codeByID[id]
	return c, ok
}
