package volume

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardalis-fat/fat32vol/errors"
	"github.com/ardalis-fat/fat32vol/internal/geometry"
	"github.com/ardalis-fat/fat32vol/internal/testimage"
)

func mountFixture(t *testing.T, presetName string) *Volume {
	t.Helper()

	preset, err := geometry.Get(presetName)
	require.NoError(t, err)

	raw := testimage.Build(preset)
	backing := testimage.NewBacking(raw)

	v, err := MountReadWriter(backing, int64(len(raw)), "fixture.img")
	require.NoError(t, err)
	return v
}

func TestMount_EmptyRootDirectory(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	names, err := v.Ls()
	require.NoError(t, err)
	require.Empty(t, names)
	require.Equal(t, "/", v.CurrentPath())
	require.Equal(t, "fixture.img", v.ImageName())
}

func TestMkdirThenCdThenDotDot(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Mkdir("SUBDIR"))
	names, err := v.Ls()
	require.NoError(t, err)
	require.Equal(t, []string{"SUBDIR"}, names)

	require.NoError(t, v.Cd("SUBDIR"))
	require.Equal(t, "/SUBDIR", v.CurrentPath())

	inner, err := v.Ls()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{".", ".."}, inner)

	require.NoError(t, v.Cd(".."))
	require.Equal(t, "/", v.CurrentPath())
}

func TestMkdir_DuplicateNameFails(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Mkdir("DUP"))
	err := v.Mkdir("DUP")
	require.ErrorIs(t, err, errors.ErrAlreadyExists)
}

func TestRmdir_RejectsNonEmptyDirectory(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Mkdir("PARENT"))
	require.NoError(t, v.Cd("PARENT"))
	require.NoError(t, v.Mkdir("CHILD"))
	require.NoError(t, v.Cd(".."))

	err := v.Rmdir("PARENT")
	require.ErrorIs(t, err, errors.ErrDirectoryNotEmpty)
}

func TestRmdir_RemovesEmptyDirectory(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Mkdir("EMPTY"))
	require.NoError(t, v.Rmdir("EMPTY"))

	names, err := v.Ls()
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestCreatOpenWriteReadClose(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("HELLO.TXT"))
	require.NoError(t, v.Open("HELLO.TXT", "-rw"))

	payload := []byte("hello, fat32")
	require.NoError(t, v.Write("HELLO.TXT", payload))

	require.NoError(t, v.Lseek("HELLO.TXT", 0))
	got, err := v.Read("HELLO.TXT", len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, got)

	require.NoError(t, v.Close("HELLO.TXT"))
}

func TestWrite_ExtendsAcrossMultipleClusters(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("BIG.BIN"))
	require.NoError(t, v.Open("BIG.BIN", "-rw"))

	// test-tiny has 512 bytes/sector * 1 sector/cluster = 512 bytes/cluster.
	payload := make([]byte, 512*3+17)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	require.NoError(t, v.Write("BIG.BIN", payload))

	require.NoError(t, v.Lseek("BIG.BIN", 0))
	got, err := v.Read("BIG.BIN", len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestOpen_SecondOpenOfSameFileFails(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("A.TXT"))
	require.NoError(t, v.Open("A.TXT", "-r"))
	err := v.Open("A.TXT", "-r")
	require.ErrorIs(t, err, errors.ErrAlreadyOpen)
}

func TestRead_WrongModeFails(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("A.TXT"))
	require.NoError(t, v.Open("A.TXT", "-w"))
	_, err := v.Read("A.TXT", 1)
	require.ErrorIs(t, err, errors.ErrNotReadable)
}

func TestLseek_PastEndOfFileFails(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("A.TXT"))
	require.NoError(t, v.Open("A.TXT", "-rw"))
	err := v.Lseek("A.TXT", 1)
	require.ErrorIs(t, err, errors.ErrOffsetOutOfRange)
}

func TestRm_RefusesOpenFile(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("A.TXT"))
	require.NoError(t, v.Open("A.TXT", "-r"))
	err := v.Rm("A.TXT")
	require.ErrorIs(t, err, errors.ErrSourceOpen)
}

func TestRm_DeletesClosedFileAndFreesItsClusters(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("A.TXT"))
	require.NoError(t, v.Open("A.TXT", "-rw"))
	require.NoError(t, v.Write("A.TXT", []byte("data")))
	require.NoError(t, v.Close("A.TXT"))

	before := v.allocator.firstFree()
	require.NoError(t, v.Rm("A.TXT"))
	after := v.allocator.firstFree()

	names, err := v.Ls()
	require.NoError(t, err)
	require.Empty(t, names)
	require.LessOrEqual(t, after, before)
}

func TestMv_RenameInPlace(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("OLD.TXT"))
	require.NoError(t, v.Mv("OLD.TXT", "NEW.TXT"))

	names, err := v.Ls()
	require.NoError(t, err)
	require.Equal(t, []string{"NEW.TXT"}, names)
}

func TestMv_IntoDirectory(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Mkdir("DEST"))
	require.NoError(t, v.Creat("FILE.TXT"))
	require.NoError(t, v.Mv("FILE.TXT", "DEST"))

	rootNames, err := v.Ls()
	require.NoError(t, err)
	require.Equal(t, []string{"DEST"}, rootNames)

	require.NoError(t, v.Cd("DEST"))
	innerNames, err := v.Ls()
	require.NoError(t, err)
	require.Contains(t, innerNames, "FILE.TXT")
}

func TestMv_OpenSourceRejected(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("A.TXT"))
	require.NoError(t, v.Open("A.TXT", "-r"))
	err := v.Mv("A.TXT", "B.TXT")
	require.ErrorIs(t, err, errors.ErrSourceOpen)
}

func TestLsof_ReportsLiveHandles(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("A.TXT"))
	require.NoError(t, v.Open("A.TXT", "-rw"))

	handles := v.Lsof()
	require.Len(t, handles, 1)
	require.Equal(t, "A.TXT", handles[0].Name)
	require.Equal(t, "rw", handles[0].Mode)
}

func TestOpen_InvalidModeRejected(t *testing.T) {
	v := mountFixture(t, "test-tiny")

	require.NoError(t, v.Creat("A.TXT"))
	err := v.Open("A.TXT", "-x")
	require.ErrorIs(t, err, errors.ErrInvalidMode)
}

func TestInfo_ReflectsPresetGeometry(t *testing.T) {
	v := mountFixture(t, "test-tiny")
	info := v.Info()

	require.Equal(t, uint32(2), info.RootCluster)
	require.Equal(t, uint32(512), info.BytesPerSector)
	require.Equal(t, uint32(1), info.SectorsPerCluster)
}
