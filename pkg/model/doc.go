// Package model describes the base objects manipulated by the build server.
//
// The object model is composed of:
//
//	Feeds:
//	  One podlet's published asset set for one asset type (js or css). A feed is an ordered
//	  list of source files and is identified by the hash of its normalized content.
//
//	Instructions:
//	  A layout's ordered list of podlet tags to bundle together, for one asset type.
//
//	Manifests:
//	  The ordered list of feed ids a bundle identity stands for. A manifest makes a bundle
//	  identity known to the server, so it may be built on demand.
//
//	Bundles:
//	  The built artifact for a bundle identity: transformed, deduplicated and concatenated
//	  source, stored by content hash, plus descriptive metadata.
package model
