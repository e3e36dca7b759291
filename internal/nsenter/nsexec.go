//go:build linux && cgo

package nsenter

/*
#define _GNU_SOURCE
#include <errno.h>
#include <fcntl.h>
#include <grp.h>
#include <sched.h>
#include <signal.h>
#include <stdio.h>
#include <stdlib.h>
#include <string.h>
#include <sys/prctl.h>
#include <sys/types.h>
#include <sys/wait.h>
#include <unistd.h>

#define NSPCTL_MAX_NAMESPACES 16

struct nspctl_ns {
	int fd;
	char kind[16];
};

static int nspctl_status_fd = -1;

// nspctl_fail reports "<stage> <what> <errno>" on the status pipe, or on
// stderr when the caller has already been replaced, and exits.
static void nspctl_fail(const char *stage, const char *what, int err)
{
	if (nspctl_status_fd >= 0)
		dprintf(nspctl_status_fd, "%s %s %d\n", stage, what, err);
	else
		fprintf(stderr, "nspctl: %s %s: %s\n", stage, what, strerror(err));
	_exit(255);
}

// nspctl_parse reads "fd:kind fd:kind ..." into out.
static int nspctl_parse(const char *spec, struct nspctl_ns *out, int max)
{
	const char *p = spec;
	int n = 0;

	while (*p) {
		char *end;
		long fd;
		size_t k = 0;

		while (*p == ' ')
			p++;
		if (*p == '\0')
			break;
		if (n == max)
			return -1;

		fd = strtol(p, &end, 10);
		if (end == p || *end != ':' || fd < 0)
			return -1;
		p = end + 1;

		while (*p && *p != ' ' && k < sizeof(out[n].kind) - 1)
			out[n].kind[k++] = *p++;
		out[n].kind[k] = '\0';
		if (k == 0 || (*p && *p != ' '))
			return -1;

		out[n].fd = (int)fd;
		n++;
	}
	return n;
}

// nspctl_read_argv returns the NUL separated command line. It must run
// before the mount namespace is joined, while /proc is still the host's.
static char **nspctl_read_argv(void)
{
	size_t cap = 4096, len = 0, count = 0, i;
	char *buf, **argv, *p;
	int fd;

	fd = open("/proc/self/cmdline", O_RDONLY | O_CLOEXEC);
	if (fd < 0)
		return NULL;

	buf = malloc(cap);
	for (;;) {
		ssize_t n;

		if (buf == NULL) {
			close(fd);
			return NULL;
		}
		n = read(fd, buf + len, cap - len);
		if (n < 0) {
			if (errno == EINTR)
				continue;
			close(fd);
			free(buf);
			return NULL;
		}
		if (n == 0)
			break;
		len += (size_t)n;
		if (len == cap) {
			char *grown = realloc(buf, cap * 2);
			if (grown == NULL)
				free(buf);
			buf = grown;
			cap *= 2;
		}
	}
	close(fd);

	for (i = 0; i < len; i++)
		if (buf[i] == '\0')
			count++;

	argv = calloc(count + 1, sizeof(char *));
	if (argv == NULL)
		return NULL;
	for (i = 0, p = buf; i < count; i++) {
		argv[i] = p;
		p += strlen(p) + 1;
	}
	return argv;
}

// nspctl_wait stays outside the joined pid namespace as the parent of child
// and exits the way child did.
static void nspctl_wait(pid_t child)
{
	int status;

	if (nspctl_status_fd >= 0)
		close(nspctl_status_fd);

	// The terminal's job control signals belong to the shell.
	signal(SIGINT, SIG_IGN);
	signal(SIGQUIT, SIG_IGN);

	while (waitpid(child, &status, 0) < 0) {
		if (errno != EINTR)
			_exit(255);
	}
	if (WIFSIGNALED(status)) {
		signal(WTERMSIG(status), SIG_DFL);
		kill(getpid(), WTERMSIG(status));
	}
	_exit(WIFEXITED(status) ? WEXITSTATUS(status) : 255);
}

__attribute__((constructor)) static void nspctl_nsexec(void)
{
	struct nspctl_ns ns[NSPCTL_MAX_NAMESPACES];
	const char *spec, *status;
	char **argv = NULL;
	int count, check, fork_child, i;

	spec = getenv("_NSPCTL_NSENTER_FDS");
	if (spec == NULL)
		return;

	status = getenv("_NSPCTL_NSENTER_STATUS");
	if (status != NULL) {
		nspctl_status_fd = atoi(status);
		fcntl(nspctl_status_fd, F_SETFD, FD_CLOEXEC);
	}
	check = getenv("_NSPCTL_NSENTER_CHECK") != NULL;
	fork_child = getenv("_NSPCTL_NSENTER_FORK") != NULL;

	count = nspctl_parse(spec, ns, NSPCTL_MAX_NAMESPACES);
	if (count < 0)
		nspctl_fail("parse", "namespaces", EINVAL);

	if (!check) {
		argv = nspctl_read_argv();
		if (argv == NULL || argv[0] == NULL || argv[1] == NULL || argv[2] == NULL)
			nspctl_fail("parse", "argv", EINVAL);
	}

	unsetenv("_NSPCTL_NSENTER_FDS");
	unsetenv("_NSPCTL_NSENTER_STATUS");
	unsetenv("_NSPCTL_NSENTER_CHECK");
	unsetenv("_NSPCTL_NSENTER_FORK");

	for (i = 0; i < count; i++) {
		if (setns(ns[i].fd, 0) < 0)
			nspctl_fail("join", ns[i].kind, errno);
		close(ns[i].fd);

		if (strcmp(ns[i].kind, "user") == 0) {
			// setgroups is denied in some user namespaces; the ids still switch.
			if (setgroups(0, NULL) < 0 && errno != EPERM)
				nspctl_fail("setgroups", ns[i].kind, errno);
			if (setresgid(0, 0, 0) < 0)
				nspctl_fail("setgid", ns[i].kind, errno);
			if (setresuid(0, 0, 0) < 0)
				nspctl_fail("setuid", ns[i].kind, errno);
		}
	}

	if (check)
		_exit(0);

	if (fork_child) {
		pid_t child = fork();

		if (child < 0)
			nspctl_fail("fork", "pid", errno);
		if (child > 0)
			nspctl_wait(child);
		prctl(PR_SET_PDEATHSIG, SIGKILL);
	}

	execve(argv[1], argv + 2, environ);
	nspctl_fail("exec", "-", errno);
}
*/
import "C"

const reexecAvailable = true
