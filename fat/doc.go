// Package fat implements the on-disk layout of ECS150FS volumes: a
// superblock, a File Allocation Table of 16-bit entries and a single
// root directory block, followed by the data blocks.
//
// Blocks are 4096 bytes (see package disk). The FAT holds one entry per
// data block; data block i is stored at device block DataStartBlock+i.
// The root directory holds at most 128 files, with names of at most 15
// bytes.
package fat
