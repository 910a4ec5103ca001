//go:build windows

package measure

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// os.ProcessState's CPU times only cover the direct child on Windows, so
// the process is started suspended, assigned to a job object, and the job
// accounting is read after it exits. This also covers grandchildren
// spawned by an intermediate shell.

const (
	jobObjectBasicAccountingInformation = 1
	hundredNSTicks                      = 100
)

type jobBasicAndIOAccounting struct {
	TotalUserTime             int64
	TotalKernelTime           int64
	ThisPeriodTotalUserTime   int64
	ThisPeriodTotalKernelTime int64
	TotalPageFaultCount       uint32
	TotalProcesses            uint32
	ActiveProcesses           uint32
	TotalTerminatedProcesses  uint32
}

func runCommand(ctx context.Context, argv []string) (timing, int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.CREATE_SUSPENDED,
	}

	if err := cmd.Start(); err != nil {
		return timing{}, 0, err
	}
	pid := uint32(cmd.Process.Pid)

	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return timing{}, 0, err
	}
	defer func() {
		windows.TerminateJobObject(job, 0)
		windows.CloseHandle(job)
	}()

	hProcess, err := windows.OpenProcess(windows.SPECIFIC_RIGHTS_ALL, false, pid)
	if err != nil {
		return timing{}, 0, err
	}
	if err := windows.AssignProcessToJobObject(job, hProcess); err != nil {
		windows.CloseHandle(hProcess)
		return timing{}, 0, err
	}
	windows.CloseHandle(hProcess)

	hThread, err := mainThreadOfPID(pid)
	if err != nil {
		return timing{}, 0, err
	}
	defer windows.CloseHandle(hThread)

	start := time.Now()
	windows.ResumeThread(hThread)
	err = cmd.Wait()
	tm := timing{real: time.Since(start)}

	exit := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return timing{}, 0, err
		}
		exit = exitErr.ExitCode()
	}

	var info jobBasicAndIOAccounting
	if err := windows.QueryInformationJobObject(job,
		jobObjectBasicAccountingInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)), nil); err != nil {
		return timing{}, 0, err
	}
	tm.user = time.Duration(info.TotalUserTime * hundredNSTicks)
	tm.system = time.Duration(info.TotalKernelTime * hundredNSTicks)
	return tm, exit, nil
}

func mainThreadOfPID(pid uint32) (windows.Handle, error) {
	hSnapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return windows.InvalidHandle, err
	}
	defer windows.CloseHandle(hSnapshot)

	var entry windows.ThreadEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	for err = windows.Thread32First(hSnapshot, &entry); err == nil; err = windows.Thread32Next(hSnapshot, &entry) {
		if entry.OwnerProcessID == pid {
			return windows.OpenThread(windows.THREAD_SUSPEND_RESUME, false, entry.ThreadID)
		}
	}
	return windows.InvalidHandle, err
}
