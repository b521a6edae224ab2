package webgpu

// WGSL compute programs. Build options supply the constants each program
// expects: WG_X and WG_Y for the workgroup size, plus program specific ones
// listed next to each source.

// additionSource adds two F32 tensors over a 2D window, one invocation per
// element, planes along Z.
const additionSource = `
struct Params {
    width: u32,
    height: u32,
    planes: u32,
    start_x: u32,
    start_y: u32,
    a_offset: u32,
    a_stride_y: u32,
    a_stride_z: u32,
    b_offset: u32,
    b_stride_y: u32,
    b_stride_z: u32,
    out_offset: u32,
    out_stride_y: u32,
    out_stride_z: u32,
    _pad0: u32,
    _pad1: u32,
}

@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(WG_X, WG_Y, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.width || gid.y >= params.height || gid.z >= params.planes) {
        return;
    }
    let x = params.start_x + gid.x;
    let y = params.start_y + gid.y;
    let ia = params.a_offset + gid.z * params.a_stride_z + y * params.a_stride_y + x;
    let ib = params.b_offset + gid.z * params.b_stride_z + y * params.b_stride_y + x;
    let io = params.out_offset + gid.z * params.out_stride_z + y * params.out_stride_y + x;
    result[io] = a[ia] + b[ib];
}
`

// convolutionSource convolves a U8 image into a U8 image with a
// MATRIX_ROWS x MATRIX_COLS matrix and divides by SCALE.
//
// Bytes are packed four to a word, so each invocation owns one output word
// and rewrites the bytes of it that fall inside the window, leaving padding
// and out-of-window bytes untouched.
const convolutionSource = `
struct Params {
    start_x: i32,
    end_x: i32,
    start_y: i32,
    end_y: i32,
    planes: i32,
    in_offset: i32,
    in_stride_y: i32,
    in_stride_z: i32,
    out_offset: i32,
    out_stride_y: i32,
    out_stride_z: i32,
    out_words: u32,
}

@group(0) @binding(0) var<storage, read> src: array<u32>;
@group(0) @binding(1) var<storage, read_write> dst: array<u32>;
@group(0) @binding(2) var<storage, read> coeffs: array<i32>;
@group(0) @binding(3) var<uniform> params: Params;

fn load_u8(idx: i32) -> i32 {
    let word = src[u32(idx) >> 2u];
    return i32((word >> ((u32(idx) & 3u) * 8u)) & 0xffu);
}

fn convolve(x: i32, y: i32, z: i32) -> u32 {
    var sum = 0;
    let base = params.in_offset + z * params.in_stride_z + x - MATRIX_COLS / 2;
    for (var r = 0; r < MATRIX_ROWS; r++) {
        let row = base + (y + r - MATRIX_ROWS / 2) * params.in_stride_y;
        for (var c = 0; c < MATRIX_COLS; c++) {
            sum += load_u8(row + c) * coeffs[r * MATRIX_COLS + c];
        }
    }
    var scaled = sum;
    if (SCALE != 1) {
        scaled = i32(f32(sum) * (1.0 / f32(SCALE)));
    }
    return u32(clamp(scaled, 0, 255));
}

@compute @workgroup_size(WG_X, WG_Y, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.out_words) {
        return;
    }
    var word = dst[gid.x];
    for (var i = 0u; i < 4u; i++) {
        let rel = i32(gid.x * 4u + i) - params.out_offset;
        if (rel < 0) {
            continue;
        }
        let z = rel / params.out_stride_z;
        let y = (rel % params.out_stride_z) / params.out_stride_y;
        let x = rel % params.out_stride_y;
        if (z >= params.planes || x < params.start_x || x >= params.end_x || y < params.start_y || y >= params.end_y) {
            continue;
        }
        let shift = i * 8u;
        word = (word & ~(0xffu << shift)) | (convolve(x, y, z) << shift);
    }
    dst[gid.x] = word;
}
`
