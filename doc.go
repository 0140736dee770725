/*
Package datastep contains the storage and windowed-processing core of a
row-oriented batch transformation engine. Data sets are persisted as pairs
of compressed sequential files, replayed row by row through a sliding
window exposing lag and lead rows, and sorted in memory or via an external
chunked merge-sort.

Data Structure Documentation

Data Set

A data set named NAME consists of two sibling files, NAME.hdr and NAME.dat.
Both start with an uncompressed preamble followed by a compressed stream.

    Preamble:
    +------------------+---------------------------+--------------------+
    |  magic (8 bytes) | compression type (1 byte) | file kind (1 byte) |
    +------------------+---------------------------+--------------------+

File kind is 'H' for the header and 'D' for the data file.

Header

The header stream holds a single JSON document:

    {"variables":[{"name":"a","type":"string"},{"name":"b","type":"number"}],"attributes":{"k":"v"}}

Data

The data stream is a series of records without framing. Each record holds
exactly one field per variable, in header order.

    Record layout:
    +---------+---------+---------+
    | field 1 |   ...   | field n |
    +---------+---------+---------+

    Field layout:
    +-------------------+-------------------------------------------------+
    | kind (1 byte)     | payload                                         |
    +-------------------+-------------------------------------------------+
    | 0 null            | -                                               |
    | 1 number          | float64 bits (8 bytes, little endian)           |
    | 2 string          | length (uvarint) + bytes                        |
    +-------------------+-------------------------------------------------+

Rows written after the last periodic flush (see Options.FlushInterval) are
lost if the process terminates before Close.
*/
package datastep
