// SPDX-License-Identifier: MPL-2.0

// Package declaration reads a host manifest and expands its runtime-libraries
// section into library descriptors and resolution settings.
//
// A manifest looks like:
//
//	name: MyPlugin
//	runtime-libraries:
//	  relocation-prefix: org.example.libs
//	  libraries-folder: libs
//	  delete-after-relocation: false
//	  global-relocations:
//	    com#google#gson: gson
//	  libraries:
//	    caffeine:
//	      groupId: com.github.ben-manes.caffeine
//	      artifactId: caffeine
//	      version: 3.1.8
//	      relocation:
//	        com#github#benmanes#caffeine: caffeine
//
// YAML, CUE and TOML manifests are supported; the format follows the file
// extension. Libraries are returned in declaration order for YAML and CUE, and
// in lexical key order for TOML, whose tables are unordered.
package declaration
