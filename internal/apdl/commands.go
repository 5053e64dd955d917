package apdl

// Processor routing.

func Prep7() string  { return "/PREP7" }
func Solu() string   { return "/SOLU" }
func Post1() string  { return "/POST1" }
func Post26() string { return "/POST26" }
func Finish() string { return "FINISH" }

// Session.

func Com(text string) string { return "/COM," + text }

func Sys(command string) string { return Command("/SYS", command) }

func Clear() string { return "/CLEAR,NOSTART" }

func Title(text string) string { return Command("/TITLE", text) }

// Inquire returns a /INQUIRE line storing func into parameter name.
func Inquire(name, fn string, args ...any) string {
	return Command("/INQUIRE", append([]any{name, fn}, args...)...)
}

// Nerr controls error handling. Nerr(nil, nil, -1) disables the abort on
// error so a remote session survives solver errors.
func Nerr(nmerr, nmabt, abort any) string {
	return Command("NERR", nmerr, nmabt, abort)
}

func Save(fname, ext, slab any) string   { return Command("SAVE", fname, ext, "", slab) }
func Resume(fname, ext any) string       { return Command("RESUME", fname, ext) }
func Parres(lab, fname, ext any) string  { return Command("PARRES", lab, fname, ext) }
func Input(fname, ext, line any) string  { return Command("/INPUT", fname, ext, "", line) }
func Output(fname, ext, loc any) string  { return Command("/OUTPUT", fname, ext, "", loc) }
func Show(device string) string          { return Command("/SHOW", device) }
func Status(lab any) string              { return Command("*STATUS", lab) }
func Dim(par, typ string, dims ...any) string {
	return Command("*DIM", append([]any{par, typ}, dims...)...)
}

// Geometry.

func K(npt, x, y, z any) string { return Command("K", npt, x, y, z) }

func L(p1, p2 any) string { return Command("L", p1, p2) }

func A(kps ...any) string { return Command("A", kps...) }

func Block(x1, x2, y1, y2, z1, z2 any) string { return Command("BLOCK", x1, x2, y1, y2, z1, z2) }

func KDist(kp1, kp2 any) string { return Command("KDIST", kp1, kp2) }

func N(node, x, y, z any) string { return Command("N", node, x, y, z) }

func E(nodes ...any) string { return Command("E", nodes...) }

func ET(itype any, ename string) string { return Command("ET", itype, ename) }

func MP(lab string, mat, c0 any) string { return Command("MP", lab, mat, c0) }

// Meshing.

func Esize(size any) string  { return Command("ESIZE", size) }
func Amesh(na1 any) string   { return Command("AMESH", na1) }
func Vmesh(nv1 any) string   { return Command("VMESH", nv1) }
func Vsweep(vnum any) string { return Command("VSWEEP", vnum) }

// Selection. kind is S, R, A, U, ALL or NONE.

func Nsel(kind, item, comp string, vmin, vmax, vinc any) string {
	return Command("NSEL", kind, item, comp, vmin, vmax, vinc)
}

func Esel(kind, item, comp string, vmin, vmax, vinc any) string {
	return Command("ESEL", kind, item, comp, vmin, vmax, vinc)
}

func Ksel(kind, item, comp string, vmin, vmax, vinc any) string {
	return Command("KSEL", kind, item, comp, vmin, vmax, vinc)
}

func Lsel(kind, item, comp string, vmin, vmax, vinc any) string {
	return Command("LSEL", kind, item, comp, vmin, vmax, vinc)
}

func Asel(kind, item, comp string, vmin, vmax, vinc any) string {
	return Command("ASEL", kind, item, comp, vmin, vmax, vinc)
}

func Vsel(kind, item, comp string, vmin, vmax, vinc any) string {
	return Command("VSEL", kind, item, comp, vmin, vmax, vinc)
}

func Allsel() string { return "ALLSEL" }

// Loads and solution.

func D(node any, lab string, value any) string { return Command("D", node, lab, value) }

func F(node any, lab string, value any) string { return Command("F", node, lab, value) }

func Antype(antype any) string { return Command("ANTYPE", antype) }

func Modopt(method string, nmode, freqb, freqe any) string {
	return Command("MODOPT", method, nmode, freqb, freqe)
}

func Solve() string { return "SOLVE" }

func Set(lstep, sbstep any) string { return Command("SET", lstep, sbstep) }

func Nlist() string { return "NLIST" }

func Dlist(node1, node2, ninc any) string { return Command("DLIST", node1, node2, ninc) }

func Flist(node1, node2, ninc any) string { return Command("FLIST", node1, node2, ninc) }

func Prnsol(item, comp string) string { return Command("PRNSOL", item, comp) }

// Parameters.

// Get formats the *GET command body for the Get RPC: entity through
// item2 number, without the parameter name.
func Get(entity string, entnum any, item1 string, it1num any, item2 string, it2num any) string {
	return Command(entity, entnum, item1, it1num, item2, it2num)
}

// StarGet is the stored form of *GET writing into parameter par.
func StarGet(par, entity string, entnum any, item1 string, it1num any, item2 string, it2num any) string {
	return Command("*GET", par, entity, entnum, item1, it1num, item2, it2num)
}

// VGet formats the body used by the VGet2 streaming RPC.
func VGet(entity string, entnum any, item1 string, it1num any, item2 string, it2num any, kloop any) string {
	return Command(entity, entnum, item1, it1num, item2, it2num, kloop)
}

func Assign(name string, value any) string { return name + "=" + FormatArg(value) }
