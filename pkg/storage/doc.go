/*
Package storage persists the region's replicated state: the records of every
registered rack controller.

The Store interface is backed by BoltDB (one bucket, JSON values). Writes
only ever arrive through the raft FSM so every region node converges on the
same bucket contents; reads are served from the local database.
*/
package storage
