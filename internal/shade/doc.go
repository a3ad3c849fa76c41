// Package shade assembles a self-contained ("fat") jar from compiled
// output directories and dependency archives.
//
// Entries are merged in input order. Duplicate service descriptors under
// META-INF/services are concatenated, any other duplicate is resolved in
// favour of the input that comes last. Relocation rules move package
// namespaces: entry paths are renamed and every symbolic reference inside
// class files (constant pool strings in internal and binary form) and
// service descriptors is rewritten to match. The archive switches to the
// zip64 format on its own once it outgrows classic zip limits.
package shade
